package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"dyscraper/pkg/checkpoint"
	"dyscraper/pkg/config"
	"dyscraper/pkg/douyin"
	"dyscraper/pkg/metadata"
	"dyscraper/pkg/ui"
	"dyscraper/pkg/ui/tui"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect or clear the download history of a profile",
	Long: `dyscraper remembers which videos of a profile were downloaded so later
runs skip them. These commands show or reset that history.`,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <profile-url>",
	Short: "Show run history and recorded videos",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyClearCmd = &cobra.Command{
	Use:   "clear <profile-url>",
	Short: "Forget downloaded videos (a backup is kept)",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryClear,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyShowCmd, historyClearCmd)
	historyShowCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "videos to list (0 = all)")
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}
	key := douyin.ProfileKey(args[0])

	mgr, err := checkpoint.NewManager(key)
	if err != nil {
		return err
	}
	info, err := mgr.GetInfo()
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}
	if info == nil {
		ui.PrintWarning("No history for this profile")
	} else {
		ui.PrintHighlight("Run history")
		ui.PrintInfo("Profile", info.Profile)
		ui.PrintInfo("Runs", fmt.Sprintf("%d (last mode %s)", info.Runs, info.LastMode))
		ui.PrintInfo("Downloaded", fmt.Sprintf("%d videos", info.TotalDownloaded))
		ui.PrintInfo("Last run", fmt.Sprintf("%s (%s ago)",
			info.UpdatedAt.Format("2006-01-02 15:04"), info.Age.Round(time.Minute)))
		ui.PrintInfo("File", mgr.Path())
	}

	dir := profileDir(cfg, key)
	meta, err := metadata.Load(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	fmt.Println()
	ui.PrintHighlight(fmt.Sprintf("%d videos in %s", len(meta.Videos), dir))
	for i, v := range meta.Videos {
		if historyLimit > 0 && i == historyLimit {
			fmt.Printf("  ... %d more\n", len(meta.Videos)-i)
			break
		}
		title := v.GetFormattedTitle(40)
		if title == "" {
			title = "-"
		}
		fmt.Printf("  %-40s %9s  %s\n", title, tui.FormatBytes(v.FileSize), v.Filename)
	}
	return nil
}

func runHistoryClear(cmd *cobra.Command, args []string) error {
	mgr, err := checkpoint.NewManager(douyin.ProfileKey(args[0]))
	if err != nil {
		return err
	}
	if !mgr.Exists() {
		ui.PrintWarning("No history for this profile")
		return nil
	}
	if err := mgr.Backup(); err != nil {
		return err
	}
	if err := mgr.Delete(); err != nil {
		return err
	}
	ui.PrintSuccess("History cleared, backup at " + mgr.Path() + ".backup")
	return nil
}

// profileDir mirrors where scrape writes a profile's videos.
func profileDir(cfg *config.Config, key string) string {
	if cfg.Output.CreateProfileFolders {
		return filepath.Join(cfg.Output.BaseDirectory, key)
	}
	return cfg.Output.BaseDirectory
}
