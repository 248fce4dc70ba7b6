package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/funtuan/government-job-backend/internal/model"
)

var (
	searchJobType  string
	searchRegions  []string
	searchFamilies []string
	searchLimit    int
)

var (
	searchTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")) // bright blue

	searchLabelStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("245")).
				Width(10)

	searchRegionStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252")).
				Background(lipgloss.Color("236")).
				Padding(0, 1)

	searchCountStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240"))
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Query the current listing snapshot",
	Long:  "Filters the stored listing snapshot by job type, region, and job family, and prints matching listings.",
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().StringVar(&searchJobType, "job-type", "", "substring match against the listing's job type (e.g. 委任)")
	searchCmd.Flags().StringSliceVar(&searchRegions, "region", nil, "allowed regions (e.g. 臺北市); repeatable")
	searchCmd.Flags().StringSliceVar(&searchFamilies, "family", nil, "allowed job families (e.g. 一般行政); repeatable")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 20, "maximum number of listings to print")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := setupApp(ctx)
	if err != nil {
		os.Exit(1)
	}
	defer a.Close()

	cond := model.FilterCondition{
		Regions:     searchRegions,
		JobFamilies: searchFamilies,
	}
	if searchJobType != "" {
		cond.JobType = &searchJobType
	}

	listings, err := a.orch.QuerySnapshot(ctx, cond, 0, searchLimit)
	if err != nil {
		a.logger.Error("snapshot query failed", "error", err)
		os.Exit(1)
	}

	if len(listings) == 0 {
		fmt.Println("no matching listings (run `govjobs refresh` if the snapshot is stale)")
		return nil
	}

	for _, l := range listings {
		fmt.Println(searchTitleStyle.Render(l.Fields.Title) + " " + searchRegionStyle.Render(l.Region))
		fmt.Println(searchLabelStyle.Render("單位") + l.Fields.OrgName)
		fmt.Println(searchLabelStyle.Render("職等") + fmt.Sprintf("%s %s - %s", l.Fields.JobType, l.Fields.RankFrom, l.Fields.RankTo))
		fmt.Println(searchLabelStyle.Render("職系") + l.Fields.Sysnam)
		fmt.Println(searchLabelStyle.Render("連結") + l.Fields.ViewURL)
		fmt.Println()
	}

	fmt.Println(searchCountStyle.Render(fmt.Sprintf("%d listings shown", len(listings))))
	return nil
}
