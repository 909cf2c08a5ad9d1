package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/chzyer/readline"

	"wkfmanager/internal/api"
)

// Stores are the store ids offered by the console, keyed by menu letter.
var Stores = []struct {
	Key string
	ID  string
}{
	{Key: "A", ID: "7098813e-4624-462a-81a1-7e0e4e67631d"},
	{Key: "B", ID: "5a2bb99f-88d2-4612-ac60-774aea9b8de4"},
	{Key: "C", ID: "b18b3932-a4ef-485c-a182-8e67b04c208c"},
}

// WorkflowClient is the part of the engine client the console uses.
type WorkflowClient interface {
	Create(ctx context.Context, storeID string, spec api.WorkflowSpec) (api.WorkflowSpec, error)
	Update(ctx context.Context, storeID string, spec api.WorkflowSpec) (api.WorkflowSpec, error)
	Delete(ctx context.Context, storeID string) error
	Get(ctx context.Context, storeID string) (api.WorkflowSpec, error)
	List(ctx context.Context) (map[string]api.WorkflowSpec, error)
}

// LineReader reads one line of input after showing a prompt.
// *readline.Instance satisfies it.
type LineReader interface {
	Readline() (string, error)
	SetPrompt(prompt string)
}

// errExit ends the console loop.
var errExit = errors.New("exit")

// Console is the interactive menu of a restaurant owner: pick a store, then
// request, update, inspect or tear down its workflow.
type Console struct {
	client     WorkflowClient
	in         LineReader
	printer    *Printer
	out        io.Writer
	origin     string
	components []string
	storeID    string
}

// NewConsole creates a console. components is the list offered when
// building a request; origin is sent with every request.
func NewConsole(client WorkflowClient, in LineReader, out io.Writer, origin string, components []string) *Console {
	return &Console{
		client:     client,
		in:         in,
		printer:    &Printer{Format: OutputFormatJSON, Out: out},
		out:        out,
		origin:     origin,
		components: components,
	}
}

// NewReadline creates the line reader used by the console.
func NewReadline() (*readline.Instance, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline instance: %w", err)
	}
	return rl, nil
}

// StoreID returns the selected store, empty before selection.
func (c *Console) StoreID() string {
	return c.storeID
}

// Run shows the menu until the user exits, input ends or ctx is done.
func (c *Console) Run(ctx context.Context) error {
	if err := c.selectStore(); err != nil {
		return ignoreExit(err)
	}

	fmt.Fprintln(c.out, "What do you want to do?")
	fmt.Fprintln(c.out, "\t1. Send workflow request")
	fmt.Fprintln(c.out, "\t2. Teardown workflow")
	fmt.Fprintln(c.out, "\t3. Get workflow")
	fmt.Fprintln(c.out, "\t4. Get all workflows")
	fmt.Fprintln(c.out, "\t5. Update workflow")
	fmt.Fprintln(c.out, "\t0. Exit")

	for {
		if ctx.Err() != nil {
			return nil
		}
		choice, err := c.ask("Pick an option (0-5): ", "Invalid selection. Pick 0-5: ", func(s string) bool {
			return slices.Contains([]string{"0", "1", "2", "3", "4", "5"}, s)
		})
		if err != nil {
			return ignoreExit(err)
		}

		switch choice {
		case "1":
			err = c.createWorkflow(ctx)
		case "2":
			err = c.teardownWorkflow(ctx)
		case "3":
			err = c.getWorkflow(ctx)
		case "4":
			err = c.getWorkflows(ctx)
		case "5":
			err = c.updateWorkflow(ctx)
		case "0":
			return nil
		}
		if errors.Is(err, errExit) {
			return nil
		}
		if err != nil {
			fmt.Fprintln(c.out, Failure(err))
		}
	}
}

func (c *Console) selectStore() error {
	fmt.Fprintln(c.out, "Which store are you generating a workflow for?")
	for _, s := range Stores {
		fmt.Fprintf(c.out, "\t%s. %s\n", s.Key, s.ID)
	}

	key, err := c.ask("Pick a store (A-C): ", "Invalid selection. Pick A-C: ", func(s string) bool {
		return storeByKey(s) != ""
	})
	if err != nil {
		return err
	}
	c.storeID = storeByKey(key)
	return nil
}

func storeByKey(key string) string {
	for _, s := range Stores {
		if strings.EqualFold(s.Key, key) {
			return s.ID
		}
	}
	return ""
}

// readSpec prompts for a method and a component list.
func (c *Console) readSpec() (api.WorkflowSpec, error) {
	method, err := c.ask("What deployment method do you want to use (persistent or edge): ",
		"Invalid selection. Pick persistent or edge: ",
		func(s string) bool { return api.Method(s).Valid() })
	if err != nil {
		return api.WorkflowSpec{}, err
	}

	fmt.Fprintln(c.out, "What components do you want?")
	for _, name := range c.components {
		fmt.Fprintf(c.out, "\t* %s\n", name)
	}
	list, err := c.ask("Enter a space separated list: ",
		"Invalid component selection. Please enter a space\nseparated list of valid components: ",
		c.validComponents)
	if err != nil {
		return api.WorkflowSpec{}, err
	}

	return api.WorkflowSpec{
		Method:        api.Method(method),
		ComponentList: strings.Fields(strings.ToLower(list)),
		Origin:        c.origin,
	}, nil
}

func (c *Console) validComponents(line string) bool {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return false
	}
	for _, f := range fields {
		if !slices.Contains(c.components, f) {
			return false
		}
	}
	return true
}

func (c *Console) createWorkflow(ctx context.Context) error {
	spec, err := c.readSpec()
	if err != nil {
		return err
	}
	created, err := c.client.Create(ctx, c.storeID, spec)
	if err != nil {
		return fmt.Errorf("workflow deployment failed: %w", err)
	}
	fmt.Fprintln(c.out, "Workflow successfully deployed!")
	return c.printer.PrintWorkflow(c.storeID, created)
}

func (c *Console) updateWorkflow(ctx context.Context) error {
	spec, err := c.readSpec()
	if err != nil {
		return err
	}
	updated, err := c.client.Update(ctx, c.storeID, spec)
	if err != nil {
		return fmt.Errorf("workflow update failed: %w", err)
	}
	fmt.Fprintln(c.out, "Workflow successfully updated!")
	return c.printer.PrintWorkflow(c.storeID, updated)
}

func (c *Console) teardownWorkflow(ctx context.Context) error {
	if err := c.client.Delete(ctx, c.storeID); err != nil {
		return fmt.Errorf("workflow teardown failed: %w", err)
	}
	fmt.Fprintln(c.out, "Workflow torn down")
	return nil
}

func (c *Console) getWorkflow(ctx context.Context) error {
	spec, err := c.client.Get(ctx, c.storeID)
	if err != nil {
		return err
	}
	return c.printer.PrintWorkflow(c.storeID, spec)
}

func (c *Console) getWorkflows(ctx context.Context) error {
	all, err := c.client.List(ctx)
	if err != nil {
		return err
	}
	return c.printer.PrintWorkflows(all)
}

// ask prompts until valid accepts the trimmed answer. Interrupts re-prompt;
// end of input ends the console.
func (c *Console) ask(prompt, retry string, valid func(string) bool) (string, error) {
	c.in.SetPrompt(prompt)
	for {
		line, err := c.in.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return "", errExit
		}
		if err != nil {
			return "", fmt.Errorf("readline error: %w", err)
		}

		answer := strings.TrimSpace(line)
		if valid(answer) {
			return answer, nil
		}
		c.in.SetPrompt(retry)
	}
}

func ignoreExit(err error) error {
	if errors.Is(err, errExit) {
		return nil
	}
	return err
}
