/*
vkmesh imports 3D models and uploads them into Vulkan vertex and index
buffers. With watch enabled it re-uploads models as they change on disk.
*/
package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spaghettifunk/vkmesh/engine"
	"github.com/spaghettifunk/vkmesh/engine/core"
)

func init() {
	// glfw and the Vulkan bootstrap must stay on the main thread.
	runtime.LockOSThread()
}

func main() {
	configPath := flag.String("config", "vkmesh.toml", "path to the TOML configuration")
	model := flag.String("model", "", "model to load, overrides the configuration")
	flag.Parse()

	cfg, err := engine.LoadApplicationConfig(*configPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		core.LogWarn("config '%s' not found, using defaults", *configPath)
		cfg = engine.DefaultApplicationConfig()
	case err != nil:
		core.LogFatal("%s", err)
	}
	if *model != "" {
		cfg.Model = *model
	}

	e, err := engine.New(cfg)
	if err != nil {
		core.LogFatal("%s", err)
	}

	// signal channel to capture system calls
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer stop()

	if err := e.Initialize(); err != nil {
		_ = e.Shutdown()
		core.LogError("%s", err)
		os.Exit(1)
	}

	runErr := e.Run(ctx)
	if err := e.Shutdown(); err != nil {
		core.LogError("%s", err)
	}
	if runErr != nil {
		core.LogError("%s", runErr)
		os.Exit(1)
	}
}
