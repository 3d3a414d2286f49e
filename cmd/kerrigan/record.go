package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/vanderheijden86/kerrigan/pkg/store"
)

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// newForm creates a form with appropriate settings based on TTY detection
func newForm(groups ...*huh.Group) *huh.Form {
	form := huh.NewForm(groups...).WithTheme(huh.ThemeDracula())
	if !isTerminal() {
		form = form.WithAccessible(true)
	}
	return form
}

func notBlank(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

// runAddRecord asks for a name and description and inserts them.
func runAddRecord(ctx context.Context, path string) error {
	rec := store.Record{Name: store.PlaceholderText, Description: store.PlaceholderText}

	form := newForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Name").
				Value(&rec.Name).
				Validate(notBlank("name")),
			huh.NewText().
				Title("Description").
				Value(&rec.Description).
				Validate(notBlank("description")),
		),
	)
	if err := form.RunWithContext(ctx); err != nil {
		return err
	}
	return insertRecord(ctx, path, rec)
}

func insertRecord(ctx context.Context, path string, rec store.Record) error {
	st, err := store.Open(path)
	if err != nil {
		return err
	}
	defer st.Close()

	id, err := st.Insert(ctx, rec)
	if err != nil {
		return err
	}
	fmt.Printf("Inserted document #%d into %s\n", id, st.Path())
	return nil
}
