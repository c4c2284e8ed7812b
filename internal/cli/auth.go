package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tbourn/portal-rpa/internal/credentials"
)

// NewAuthCommand creates the auth command.
func NewAuthCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Authorize Google Drive access and store the token file",
		Long: `Print the OAuth consent URL, read the authorization code from stdin and
store the resulting token in GOOGLE_TOKEN_FILE. Needed once, and again when
the refresh token is revoked.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sc := rootOpts.Config.Storage
			p := credentials.NewProvider(sc.CredentialsFile, sc.TokenFile)

			url, err := p.AuthCodeURL(uuid.NewString())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Open this URL, approve access, then paste the code:\n\n%s\n\ncode: ", url)

			code, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if code = strings.TrimSpace(code); code == "" {
				return errors.New("empty authorization code")
			}
			if _, err := p.Exchange(cmd.Context(), code); err != nil {
				return err
			}
			fmt.Fprintf(out, "token saved to %s\n", sc.TokenFile)
			return nil
		},
	}
}
