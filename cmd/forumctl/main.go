// forumctl manages forums, users and sessions in a forumindex database.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"forumindex/config"
	"forumindex/database"
	"forumindex/models"
	"forumindex/utils"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	dbPath  string
	verbose bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "forumctl",
	Short:   "Manage a forumindex database",
	Version: config.AppVersion,
}

func init() {
	_ = godotenv.Load()

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", utils.GetEnv("FORUMINDEX_DB_PATH", config.DefaultDBPath), "SQLite data source")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log database activity")

	forumAddCmd.Flags().Int64("parent", 0, "Parent folder id")
	forumAddCmd.Flags().Bool("folder", false, "Create a folder instead of a forum")
	forumAddCmd.Flags().Bool("vroot", false, "Make the new folder a virtual root")
	forumAddCmd.Flags().String("description", "", "Description shown on the index")
	forumAddCmd.Flags().Int("order", 0, "Display order among siblings")

	forumPermsCmd.Flags().Int("public", int(models.PermRead), "Permission mask for anonymous viewers")
	forumPermsCmd.Flags().Int("registered", int(models.PermRead|models.PermReply|models.PermNewThread), "Permission mask for registered users")

	forumCmd.AddCommand(forumAddCmd, forumPasswordCmd, forumPermsCmd)
	userCmd.AddCommand(userAddCmd, userGrantCmd, userSessionCmd)
	rootCmd.AddCommand(forumCmd, userCmd)
}

func openDB() (*database.DatabaseService, error) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	return database.InitDB(dbPath, logger)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

var forumCmd = &cobra.Command{
	Use:   "forum",
	Short: "Manage forums and folders",
}

var forumAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Create a forum or folder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := openDB()
		if err != nil {
			return err
		}
		defer ds.Close()

		parent, _ := cmd.Flags().GetInt64("parent")
		isFolder, _ := cmd.Flags().GetBool("folder")
		isVroot, _ := cmd.Flags().GetBool("vroot")
		desc, _ := cmd.Flags().GetString("description")
		order, _ := cmd.Flags().GetInt("order")
		if isVroot && !isFolder {
			return fmt.Errorf("only folders can be virtual roots")
		}

		ctx := cmd.Context()
		node := models.ForumNode{ParentID: parent, IsFolder: isFolder, Name: args[0], Description: desc, DisplayOrder: order}
		if parent != 0 {
			p, err := ds.GetNode(ctx, parent)
			if err != nil {
				return fmt.Errorf("parent %d: %w", parent, err)
			}
			if !p.IsFolder {
				return fmt.Errorf("parent %d is not a folder", parent)
			}
			node.VirtualRootID = p.VirtualRootID
		}

		id, err := ds.CreateForum(ctx, node)
		if err != nil {
			return err
		}
		if isVroot {
			if _, err := ds.DB.ExecContext(ctx, "UPDATE forums SET vroot = ? WHERE forum_id = ?", id, id); err != nil {
				return fmt.Errorf("failed to mark virtual root: %w", err)
			}
		}
		fmt.Fprintln(cmd.OutOrStdout(), id)
		return nil
	},
}

var forumPasswordCmd = &cobra.Command{
	Use:   "password FORUM_ID [PASSWORD]",
	Short: "Protect a forum with a password, or remove the protection",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		password := ""
		if len(args) == 2 {
			password = args[1]
		}
		ds, err := openDB()
		if err != nil {
			return err
		}
		defer ds.Close()
		return ds.SetForumPassword(cmd.Context(), id, password)
	},
}

var forumPermsCmd = &cobra.Command{
	Use:   "perms FORUM_ID",
	Short: "Set the permission masks of a forum",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		pub, _ := cmd.Flags().GetInt("public")
		reg, _ := cmd.Flags().GetInt("registered")
		ds, err := openDB()
		if err != nil {
			return err
		}
		defer ds.Close()
		return ds.SetForumPermissions(cmd.Context(), id, models.Permission(pub), models.Permission(reg))
	},
}

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users and sessions",
}

var userAddCmd = &cobra.Command{
	Use:   "add USERNAME",
	Short: "Register a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := openDB()
		if err != nil {
			return err
		}
		defer ds.Close()
		id, err := ds.CreateUser(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), id)
		return nil
	},
}

var userGrantCmd = &cobra.Command{
	Use:   "grant USER_ID FORUM_ID MASK",
	Short: "Override a user's permissions for one forum",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := parseID(args[0])
		if err != nil {
			return err
		}
		forumID, err := parseID(args[1])
		if err != nil {
			return err
		}
		mask, err := strconv.Atoi(args[2])
		if err != nil || mask < 0 {
			return fmt.Errorf("invalid permission mask %q", args[2])
		}
		ds, err := openDB()
		if err != nil {
			return err
		}
		defer ds.Close()
		return ds.GrantUserPermission(cmd.Context(), userID, forumID, models.Permission(mask))
	},
}

var userSessionCmd = &cobra.Command{
	Use:   "session USER_ID",
	Short: "Issue a session token for a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := parseID(args[0])
		if err != nil {
			return err
		}
		ds, err := openDB()
		if err != nil {
			return err
		}
		defer ds.Close()
		token, err := ds.CreateSession(cmd.Context(), userID)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s=%s\n", config.SessionCookieName, token)
		return nil
	},
}
