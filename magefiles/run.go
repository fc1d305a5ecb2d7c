//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Loads the models configured in vkmesh.toml once.
func (Run) Engine() error {
	fmt.Println("Run engine...")
	if _, err := executeCmd("go", withArgs("run", ".", "-config", "vkmesh.toml"), withStream()); err != nil {
		return err
	}
	return nil
}

// Loads a single model, e.g. `mage run:model assets/teapot.obj`.
func (Run) Model(path string) error {
	if _, err := executeCmd("go", withArgs("run", ".", "-config", "vkmesh.toml", "-model", path), withStream()); err != nil {
		return err
	}
	return nil
}
