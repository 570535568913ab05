package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/alantheprice/consolepane/pkg/console"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List the active key bindings",
	Long: `Lists every key binding after applying the "keys" overrides from the
config file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		keys, err := settings.KeyBindings()
		if err != nil {
			return err
		}
		printBindings(cmd.OutOrStdout(), keys)
		return nil
	},
}

func printBindings(w io.Writer, keys console.KeyBindingConfig) {
	title := cases.Title(language.English)
	for _, b := range keys.Bindings() {
		name := title.String(strings.ReplaceAll(b.Action.String(), "-", " "))
		fmt.Fprintf(w, "%-14s %s\n", name, b.Stroke)
	}
}
