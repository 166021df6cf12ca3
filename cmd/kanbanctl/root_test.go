package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRootCmd_Layout(t *testing.T) {
	root := newRootCmd()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	require.True(t, names["migrate"])
	require.True(t, names["rebalance"])

	migrate, _, err := root.Find([]string{"migrate", "status"})
	require.NoError(t, err)
	require.Equal(t, "status", migrate.Name())
}

func TestRebalanceCmd_RequiresBoard(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"rebalance"})

	err := root.Execute()
	require.Error(t, err)
	require.Contains(t, err.Error(), `required flag(s) "board" not set`)
}

func TestExitCode(t *testing.T) {
	require.Equal(t, exitOK, exitCode(nil))
	require.Equal(t, 1, exitCode(errors.New("plain")))
	require.Equal(t, exitBusy, exitCode(withCode(exitBusy, errors.New("board is busy"))))
	require.Nil(t, withCode(exitDB, nil))
}
