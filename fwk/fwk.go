package fwk

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/context"
)

// Device represents a named component known to the System.
type Device interface {
	Name() string
}

// Module is a component driven through the application lifecycle.
type Module interface {
	Boot(ctx context.Context) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// Runner is implemented by modules owning a processing loop.
// Run returns when the loop ends or ctx is done.
type Runner interface {
	Run(ctx context.Context) error
}

type App struct {
	*Base
	modules []Module
}

func New(name string, modules ...Module) (*App, error) {
	for _, module := range modules {
		dev, ok := module.(Device)
		if !ok {
			return nil, fmt.Errorf("fwk: module %T has no name", module)
		}
		if System.Device(dev.Name()) == dev {
			continue
		}
		System.Register(dev)
	}

	return &App{
		Base:    NewBase(name),
		modules: modules,
	}, nil
}

func (app *App) AddModule(m Module) {
	if dev, ok := m.(Device); ok && System.Device(dev.Name()) != dev {
		System.Register(dev)
	}
	app.modules = append(app.modules, m)
}

// Run drives all modules through boot, start, run, stop and shutdown.
// Once a module booted, it is always stopped and shut down, whatever
// happened afterwards. The first error encountered is returned.
// Cancellation of ctx ends the run phase cleanly.
func (app *App) Run(ctx context.Context) (err error) {
	booted, err := app.sysBoot(ctx)
	defer func() {
		e := app.sysShutdown(booted)
		if err == nil {
			err = e
		}
		for _, m := range app.modules {
			if dev, ok := m.(Device); ok {
				System.Unregister(dev.Name())
			}
		}
	}()
	if err != nil {
		return err
	}

	err = app.sysStart(ctx)
	if err == nil {
		err = app.sysRun(ctx)
	}

	e := app.sysStop(booted)
	if err == nil {
		err = e
	}
	return err
}

func (app *App) Tree() string {
	o := new(strings.Builder)
	fmt.Fprintf(o, "--> %s\n", app.Name())
	for _, m := range app.modules {
		name := fmt.Sprintf("%T", m)
		if dev, ok := m.(Device); ok {
			name = dev.Name()
		}
		fmt.Fprintf(o, "  --> %s\n", name)
	}
	return o.String()
}

func (app *App) sysBoot(ctx context.Context) ([]Module, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	booted := make([]Module, 0, len(app.modules))
	for _, m := range app.modules {
		err := m.Boot(ctx)
		if err != nil {
			app.Errorf("error booting %T: %v\n", m, err)
			return booted, err
		}
		booted = append(booted, m)
	}
	return booted, nil
}

func (app *App) sysStart(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	for _, m := range app.modules {
		err := m.Start(ctx)
		if err != nil {
			return err
		}
	}
	return nil
}

func (app *App) sysRun(ctx context.Context) error {
	for _, m := range app.modules {
		r, ok := m.(Runner)
		if !ok {
			continue
		}
		err := r.Run(ctx)
		switch {
		case err == nil:
		case errors.Is(err, context.Canceled):
			app.Infof("run interrupted\n")
			return nil
		default:
			return err
		}
	}
	return nil
}

func (app *App) sysStop(modules []Module) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var err error
	for _, m := range modules {
		e := m.Stop(ctx)
		if e != nil && err == nil {
			err = e
		}
	}
	return err
}

func (app *App) sysShutdown(modules []Module) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var err error
	for i := len(modules) - 1; i >= 0; i-- {
		e := modules[i].Shutdown(ctx)
		if e != nil && err == nil {
			err = e
		}
	}
	return err
}
