package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/oarkflow/apkreleaser/internal/variant"
)

// completionCmd generates shell completions
var completionCmd = &cobra.Command{
	Use:   "completion [shell]",
	Short: "Generate shell completions",
	Long: `Generate shell completion scripts.

Bash:
  source <(apkreleaser completion bash)

Zsh:
  apkreleaser completion zsh > "${fpath[1]}/_apkreleaser"

Fish:
  apkreleaser completion fish | source

PowerShell:
  apkreleaser completion powershell | Out-String | Invoke-Expression
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return cmd.Root().GenBashCompletion(os.Stdout)
		case "zsh":
			return cmd.Root().GenZshCompletion(os.Stdout)
		case "fish":
			return cmd.Root().GenFishCompletion(os.Stdout, true)
		case "powershell":
			return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
}

func completeVariants(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return variant.Names(), cobra.ShellCompDirectiveNoFileComp
}
