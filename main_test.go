package main

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"wkfmanager/cmd"
)

func TestVersion(t *testing.T) {
	assert.Equal(t, "dev", version)
}

func TestSetVersionFromMain(t *testing.T) {
	original := cmd.GetVersion()
	defer cmd.SetVersion(original)

	cmd.SetVersion(version)
	assert.Equal(t, "dev", cmd.GetVersion())
}

func TestMainFunction(t *testing.T) {
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()

	os.Args = []string{"wkfmanager", "version"}
	assert.NotPanics(t, main)
}
