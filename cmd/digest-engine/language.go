package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var languageCmd = &cobra.Command{
	Use:   "language [code]",
	Short: "Show or set the digest output language",
	Long: `Language prints the configured digest language, or sets it when a
two-letter code (e.g. en, ru, de) is given. The setting is stored in the
run state database and applies to all future runs.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLanguage,
}

func init() {
	rootCmd.AddCommand(languageCmd)
}

func runLanguage(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if len(args) == 0 {
		lang, err := st.Setting(cmd.Context(), "digest_language", "ru")
		if err != nil {
			return err
		}
		fmt.Printf("Digest language: %s\n", lang)
		return nil
	}

	code := strings.ToLower(args[0])
	if len(code) != 2 {
		return fmt.Errorf("invalid language code %q (expected e.g. en, ru, de)", args[0])
	}
	if err := st.SetSetting(cmd.Context(), "digest_language", code); err != nil {
		return err
	}
	fmt.Printf("Digest language set to %s.\n", code)
	return nil
}
