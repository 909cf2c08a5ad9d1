// Package client is the Go client of the workflow engine REST API, used by
// the command line tools.
//
// Every method maps to one route and expects that route's success status;
// anything else is returned as a *StatusError carrying the plain text body
// the engine sent.
//
//	c, err := client.New("http://localhost:8080", client.Options{})
//	spec, err := c.Create(ctx, storeID, api.WorkflowSpec{
//		Method:        api.MethodEdge,
//		ComponentList: []string{"cass", "restocker"},
//		Origin:        "10.0.0.7",
//	})
package client
