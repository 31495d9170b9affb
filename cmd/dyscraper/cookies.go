package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"dyscraper/pkg/auth"
	"dyscraper/pkg/cookies"
	"dyscraper/pkg/douyin"
	"dyscraper/pkg/logger"
	"dyscraper/pkg/ui"
)

var (
	sessionName  string
	checkSession string
	checkOnline  bool
	quickGuide   bool
)

// cookiesCmd represents the cookies command
var cookiesCmd = &cobra.Command{
	Use:   "cookies",
	Short: "Manage Douyin login cookies",
	Long: `Check cookie files and manage stored cookie sessions.

Sessions are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - The DYSCRAPER_COOKIES environment variable (read-only)

Never share your cookies or session files!`,
}

var cookiesImportCmd = &cobra.Command{
	Use:   "import <cookie-file>",
	Short: "Store a cookie file as a named session",
	Example: `  dyscraper cookies import cookies.json --name main
  dyscraper scrape URL --session main`,
	Args: cobra.ExactArgs(1),
	RunE: runCookiesImport,
}

var cookiesSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store a pasted Cookie header as a named session",
	Long: `Prompt for a Cookie request header ("name=value; name2=value2") and
store it as a session. Input is hidden when reading from a terminal.`,
	Args: cobra.NoArgs,
	RunE: runCookiesSet,
}

var cookiesCheckCmd = &cobra.Command{
	Use:   "check [cookie-file]",
	Short: "Check that cookies contain a login",
	Long: `Report missing and expired cookies. With --online the cookies are sent
to Douyin to confirm the login is still valid.`,
	Example: `  dyscraper cookies check cookies.json --online
  dyscraper cookies check --session main`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCookiesCheck,
}

var cookiesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored sessions",
	Args:  cobra.NoArgs,
	RunE:  runCookiesList,
}

var cookiesDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Remove a stored session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := auth.NewManager()
		if err != nil {
			return err
		}
		if err := mgr.Delete(args[0]); err != nil {
			return err
		}
		ui.PrintSuccess("Session removed: " + args[0])
		return nil
	},
}

var cookiesExportCmd = &cobra.Command{
	Use:   "export <name> <cookie-file>",
	Short: "Write a stored session to a cookie file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := auth.NewManager()
		if err != nil {
			return err
		}
		s, err := mgr.Retrieve(args[0])
		if err != nil {
			return err
		}
		if err := cookies.Save(args[1], s.Cookies); err != nil {
			return err
		}
		ui.PrintSuccess(fmt.Sprintf("Wrote %d cookies to %s", len(s.Cookies), args[1]))
		return nil
	},
}

var cookiesGuideCmd = &cobra.Command{
	Use:   "guide",
	Short: "Explain how to export cookies from a browser",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if quickGuide {
			auth.ShowQuickExportGuide(os.Stdout)
			return
		}
		auth.ShowCookieExportGuide(os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(cookiesCmd)
	cookiesCmd.AddCommand(cookiesImportCmd, cookiesSetCmd, cookiesCheckCmd,
		cookiesListCmd, cookiesDeleteCmd, cookiesExportCmd, cookiesGuideCmd)

	cookiesImportCmd.Flags().StringVarP(&sessionName, "name", "n", auth.DefaultSessionName, "session name")
	cookiesSetCmd.Flags().StringVarP(&sessionName, "name", "n", auth.DefaultSessionName, "session name")
	cookiesCheckCmd.Flags().StringVarP(&checkSession, "session", "s", "", "check a stored session instead of a file")
	cookiesCheckCmd.Flags().BoolVar(&checkOnline, "online", false, "ask Douyin whether the login is valid")
	cookiesGuideCmd.Flags().BoolVar(&quickGuide, "quick", false, "show the short version")
}

func runCookiesImport(cmd *cobra.Command, args []string) error {
	cs, err := cookies.LoadFile(args[0])
	if err != nil {
		return err
	}
	if len(cs) == 0 {
		return errors.New("cookie file has no usable entries")
	}
	printReport(cookies.Validate(cs, time.Now()))
	return storeSession(cs)
}

func runCookiesSet(cmd *cobra.Command, args []string) error {
	fmt.Print("Cookie header: ")
	header, err := readSecret()
	if err != nil {
		return fmt.Errorf("failed to read cookies: %w", err)
	}
	cs := cookies.ParseHeader(header)
	if len(cs) == 0 {
		return errors.New("no name=value pairs found")
	}
	printReport(cookies.Validate(cs, time.Now()))
	return storeSession(cs)
}

func storeSession(cs []cookies.Cookie) error {
	mgr, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to open session storage: %w", err)
	}
	if err := mgr.Store(&auth.Session{Name: sessionName, Cookies: cs}); err != nil {
		return err
	}
	ui.PrintSuccess(fmt.Sprintf("Stored %d cookies as session %q", len(cs), sessionName))
	return nil
}

func runCookiesCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}

	var cs []cookies.Cookie
	switch {
	case checkSession != "":
		mgr, err := auth.NewManager()
		if err != nil {
			return err
		}
		if cs, err = mgr.Cookies(checkSession); err != nil {
			return err
		}
		ui.PrintInfo("Session", checkSession)
	default:
		path := cfg.Cookies.File
		if len(args) > 0 {
			path = args[0]
		}
		if cs, err = cookies.LoadFile(path); err != nil {
			return err
		}
		ui.PrintInfo("Cookie file", path)
	}

	report := cookies.Validate(cs, time.Now())
	printReport(report)
	if verbose {
		ui.PrintInfo("Names", strings.Join(cookies.Names(cs), ", "))
	}

	if checkOnline {
		client := douyin.NewClient(cfg.Browser.UserAgent, cfg.Download.Timeout, logger.GetLogger())
		client.SetCookies(cs)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		loggedIn, uid, err := client.CheckLogin(ctx)
		if err != nil {
			return fmt.Errorf("online check failed: %w", err)
		}
		if !loggedIn {
			ui.PrintError("Cookies are not logged in")
			return errReported
		}
		ui.PrintInfo("Logged in as uid", uid)
	}

	if !report.OK() {
		return errReported
	}
	ui.PrintSuccess("Cookies look usable")
	return nil
}

func runCookiesList(cmd *cobra.Command, args []string) error {
	mgr, err := auth.NewManager()
	if err != nil {
		return err
	}
	sessions, err := mgr.List()
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		ui.PrintWarning("No stored sessions")
		fmt.Println("\nStore one with:")
		fmt.Println("  dyscraper cookies import cookies.json --name main")
		return nil
	}

	ui.PrintHighlight("Stored sessions")
	for _, s := range sessions {
		masked := auth.SanitizeSession(s)
		fmt.Printf("\n  %s  (%d cookies, updated %s)\n", masked.Name, len(masked.Cookies),
			masked.LastModified.Format("2006-01-02 15:04"))
		for _, c := range masked.Cookies {
			if isInteresting(c.Name) {
				fmt.Printf("    %-20s %s\n", c.Name, c.Value)
			}
		}
	}
	return nil
}

func isInteresting(name string) bool {
	for _, list := range [][]string{cookies.RequiredNames, cookies.RecommendedNames} {
		for _, n := range list {
			if n == name {
				return true
			}
		}
	}
	return false
}

func printReport(r cookies.Report) {
	ui.PrintInfo("Cookies", fmt.Sprintf("%d", r.Count))
	if len(r.MissingRequired) > 0 {
		ui.PrintError("Missing required", strings.Join(r.MissingRequired, ", "))
	}
	if len(r.Expired) > 0 {
		ui.PrintError("Expired", strings.Join(r.Expired, ", "))
	}
	if len(r.MissingRecommended) > 0 {
		ui.PrintWarning("Missing recommended", strings.Join(r.MissingRecommended, ", "))
	}
}

// readSecret reads a line without echo when stdin is a terminal.
func readSecret() (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		secret, err := term.ReadPassword(fd)
		fmt.Println()
		if err == nil {
			return strings.TrimSpace(string(secret)), nil
		}
	}

	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
