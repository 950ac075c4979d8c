package codegen

import (
	"fmt"
	"io"

	"github.com/xplshn/jsarm/pkg/ast"
	"github.com/xplshn/jsarm/pkg/config"
)

// Backend is the interface that all code generation backends must implement.
type Backend interface {
	Name() string
	// Generate writes the assembly for the program rooted at root to w.
	Generate(root ast.Node, cfg *config.Config, w io.Writer) error
}

type armBackend struct{}

func NewARMBackend() Backend { return armBackend{} }

func (armBackend) Name() string { return "arm" }

func (armBackend) Generate(root ast.Node, cfg *config.Config, w io.Writer) error {
	return New(cfg).Generate(root, w)
}

// SelectBackend returns the backend for cfg.TargetArch.
func SelectBackend(cfg *config.Config) (Backend, error) {
	switch cfg.TargetArch {
	case "arm":
		return NewARMBackend(), nil
	default:
		return nil, fmt.Errorf("no backend for target '%s'", cfg.TargetArch)
	}
}
