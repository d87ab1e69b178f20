package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"solana-token-desk/internal/action"
)

func TestUserMessage(t *testing.T) {
	wrapped := fmt.Errorf("execute: %w", action.Classify(errors.New("no keypair"), action.KindSignerUnavailable))
	assert.Equal(t, "wallet not connected, connect a wallet and try again", userMessage(wrapped))
	assert.Equal(t, "another action is in progress", userMessage(action.ErrBusy))
	assert.Equal(t, "plain", userMessage(errors.New("plain")))
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	assert.Equal(t, filepath.Join(home, ".config/solana/id.json"), expandHome("~/.config/solana/id.json"))
	assert.Equal(t, "/tmp/id.json", expandHome("/tmp/id.json"))
	assert.Equal(t, "~other/id.json", expandHome("~other/id.json"))
}
