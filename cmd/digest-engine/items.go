package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/pdiddy/digest-engine/internal/period"
	"github.com/pdiddy/digest-engine/pkg/types"
)

var itemsCmd = &cobra.Command{
	Use:   "items",
	Short: "Manage collected items",
	Long: `Items lists, adds, and deletes the content items that feed the weekly
digest. Items belong to the ISO week they were collected in.`,
}

var itemsListCmd = &cobra.Command{
	Use:   "list [week-id]",
	Short: "List a week's items (default: current week)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runItemsList,
}

var itemsAddCmd = &cobra.Command{
	Use:   "add <content>",
	Short: "Add an item to the current week",
	Long: `Add records a content item for the current week. Articles carry a source
URL; topic seeds and context notes are free-form text.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runItemsAdd,
}

var itemsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an item by ID or 8-character prefix",
	Args:  cobra.ExactArgs(1),
	RunE:  runItemsDelete,
}

func init() {
	itemsListCmd.Flags().String("status", "", "filter by status: COLLECTED, CLUSTERED, or PUBLISHED")

	itemsAddCmd.Flags().String("type", "article", "item type: article, topic, or note")
	itemsAddCmd.Flags().String("url", "", "source URL (articles)")
	itemsAddCmd.Flags().String("summary", "", "one-line summary (defaults to the first 80 characters)")
	itemsAddCmd.Flags().StringSlice("tags", nil, "comma-separated tags")
	itemsAddCmd.Flags().String("language", "en", "item language code")

	itemsCmd.AddCommand(itemsListCmd, itemsAddCmd, itemsDeleteCmd)
	rootCmd.AddCommand(itemsCmd)
}

func runItemsList(cmd *cobra.Command, args []string) error {
	weekID := period.Current()
	if len(args) == 1 {
		weekID = args[0]
		if !period.Valid(weekID) {
			return fmt.Errorf("invalid week ID %q", weekID)
		}
	}
	statusFilter, _ := cmd.Flags().GetString("status")

	cfg := loadConfig()
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	items, err := st.ItemsByWeek(cmd.Context(), weekID, types.ItemStatus(strings.ToUpper(statusFilter)))
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Printf("No items for %s.\n", weekID)
		return nil
	}

	fmt.Printf("%d item(s) for %s:\n\n", len(items), weekID)
	for _, item := range items {
		summary := item.Summary
		if summary == "" {
			summary = firstLine(item.RawContent, 60)
		}
		fmt.Printf("%s  %-12s %-9s %s\n", item.ShortID(), item.Type, item.Status, summary)
	}
	return nil
}

func runItemsAdd(cmd *cobra.Command, args []string) error {
	content := strings.Join(args, " ")
	typeFlag, _ := cmd.Flags().GetString("type")
	url, _ := cmd.Flags().GetString("url")
	summary, _ := cmd.Flags().GetString("summary")
	tags, _ := cmd.Flags().GetStringSlice("tags")
	language, _ := cmd.Flags().GetString("language")

	itemType, err := parseItemType(typeFlag)
	if err != nil {
		return err
	}
	if summary == "" {
		summary = firstLine(content, 80)
	}

	item := types.Item{
		ID:         uuid.NewString(),
		CreatedAt:  time.Now(),
		Type:       itemType,
		RawContent: content,
		SourceURL:  url,
		Summary:    summary,
		Tags:       tags,
		Language:   language,
		WeekID:     period.Current(),
		Status:     types.StatusCollected,
	}

	cfg := loadConfig()
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.SaveItem(cmd.Context(), item); err != nil {
		return err
	}
	fmt.Printf("Added %s item %s to %s.\n", item.Type, item.ShortID(), item.WeekID)
	return nil
}

func runItemsDelete(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	item, err := st.FindItemByPrefix(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if item == nil {
		return fmt.Errorf("no item matches %q", args[0])
	}

	deleted, err := st.DeleteItem(cmd.Context(), item.ID)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("no item matches %q", args[0])
	}
	fmt.Printf("Deleted %s (%s).\n", item.ShortID(), item.Summary)
	return nil
}

func parseItemType(s string) (types.ItemType, error) {
	switch strings.ToLower(s) {
	case "article":
		return types.ItemArticle, nil
	case "topic", "topic_seed":
		return types.ItemTopicSeed, nil
	case "note", "context_note":
		return types.ItemContextNote, nil
	default:
		return "", fmt.Errorf("unknown item type %q (expected article, topic, or note)", s)
	}
}

func firstLine(s string, limit int) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > limit {
		s = s[:limit] + "…"
	}
	return s
}
