package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kalambet/binbuddy/internal/assistant"
	"github.com/kalambet/binbuddy/internal/config"
	"github.com/kalambet/binbuddy/internal/equipment"
	"github.com/kalambet/binbuddy/internal/knowledge"
	"github.com/kalambet/binbuddy/internal/storage"
)

// --- ask ---

type chatResponse struct {
	Text        string `json:"text"`
	Outcome     string `json:"outcome"`
	Topic       string `json:"topic"`
	EntryID     string `json:"entry_id"`
	Handler     string `json:"handler"`
	Environment string `json:"environment"`
}

var askCmd = &cobra.Command{
	Use:   "ask <message>",
	Short: "Send one message to the running server",
	Long: `Send one message to the running server and print the reply.

Examples:
  binbuddy ask "how does it work"
  binbuddy ask --env operational --user op-1 --fill 92 "what is my bin status"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cc, err := conversationFromFlags(cmd)
		if err != nil {
			return err
		}
		asJSON, _ := cmd.Flags().GetBool("json")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		reply, err := client.chat(cmd.Context(), strings.Join(args, " "), cc)
		if err != nil {
			return err
		}
		return printReply(cmd.OutOrStdout(), reply, asJSON)
	},
}

func printReply(w io.Writer, reply chatResponse, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(reply)
	}
	if reply.Text == "" {
		fmt.Fprintln(w, colorize(outcomeColor(reply.Outcome), "(no reply: "+reply.Outcome+")"))
		return nil
	}
	fmt.Fprintln(w, reply.Text)
	return nil
}

// conversationFromFlags builds the per-request context shared by ask and chat.
func conversationFromFlags(cmd *cobra.Command) (assistant.ConversationContext, error) {
	envFlag, _ := cmd.Flags().GetString("env")
	env, err := knowledge.ParseEnvironment(envFlag)
	if err != nil {
		return assistant.ConversationContext{}, err
	}
	user, _ := cmd.Flags().GetString("user")
	name, _ := cmd.Flags().GetString("name")

	cc := assistant.ConversationContext{Environment: env, UserID: user, UserName: name}

	fill, _ := cmd.Flags().GetFloat64("fill")
	if fill >= 0 {
		if fill > 100 {
			return cc, fmt.Errorf("--fill must be between 0 and 100")
		}
		battery, _ := cmd.Flags().GetFloat64("battery")
		bin, _ := cmd.Flags().GetString("bin")
		cc.Equipment = &equipment.Snapshot{
			BinID:       bin,
			FillLevel:   fill,
			Status:      "online",
			Battery:     battery,
			LastUpdated: time.Now(),
		}
	}
	return cc, nil
}

func addConversationFlags(cmd *cobra.Command) {
	cmd.Flags().String("env", "public", "environment: public or operational")
	cmd.Flags().String("user", "", "user id for moderation tracking")
	cmd.Flags().String("name", "", "user display name")
	cmd.Flags().Float64("fill", -1, "bin fill level in percent (enables equipment context)")
	cmd.Flags().Float64("battery", 100, "sensor battery in percent")
	cmd.Flags().String("bin", "", "bin id")
}

func init() {
	addConversationFlags(askCmd)
	askCmd.Flags().Bool("json", false, "print the full reply as JSON")
}

// --- chat ---

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversation in the terminal",
	Long: `Start an interactive conversation backed by a local engine and the
configured store. Type "exit" or press Ctrl-D to leave.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cc, err := conversationFromFlags(cmd)
		if err != nil {
			return err
		}
		noDelay, _ := cmd.Flags().GetBool("no-delay")

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		eng, store, err := openEngine(cmd.Context(), cfg, nil)
		if err != nil {
			return err
		}
		defer store.Close()

		pacer := assistant.Pacer{Delay: cfg.ReplyDelay()}
		if noDelay {
			pacer.Delay = 0
		}
		return runREPL(cmd.Context(), eng, cmd.InOrStdin(), cmd.OutOrStdout(), cc, pacer)
	},
}

func init() {
	addConversationFlags(chatCmd)
	chatCmd.Flags().Bool("no-delay", false, "reply without the typing pause")
}

// runREPL reads one message per line from in and writes replies to out until
// EOF, "exit" or "quit".
func runREPL(ctx context.Context, eng *assistant.Engine, in io.Reader, out io.Writer, cc assistant.ConversationContext, pacer assistant.Pacer) error {
	greeting := eng.Greeting(cc.Environment, cc.UserName)
	fmt.Fprintln(out, colorize(colorCyan, "binbuddy> ")+greeting)
	cc.History = append(cc.History, assistant.Message{
		Role: assistant.RoleAssistant, Content: greeting, Timestamp: time.Now(), Environment: cc.Environment,
	})

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, colorize(colorBold, "you> "))
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}

		cc.History = append(cc.History, assistant.Message{
			Role: assistant.RoleUser, Content: line, Timestamp: time.Now(), Environment: cc.Environment,
		})
		reply := eng.Respond(ctx, line, cc)
		if err := pacer.Wait(ctx); err != nil {
			return err
		}
		if reply.Text == "" {
			continue
		}
		fmt.Fprintln(out, colorize(colorCyan, "binbuddy> ")+reply.Text)
		cc.History = append(cc.History, assistant.Message{
			Role: assistant.RoleAssistant, Content: reply.Text, Timestamp: time.Now(), Environment: cc.Environment,
		})
	}
}

// --- explain ---

var explainCmd = &cobra.Command{
	Use:   "explain <message>",
	Short: "Show how a message is normalized and scored",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		envFlag, _ := cmd.Flags().GetString("env")
		env, err := knowledge.ParseEnvironment(envFlag)
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")
		path, _ := cmd.Flags().GetString("kb")

		base, err := knowledge.LoadFile(path)
		if err != nil {
			return err
		}
		cfg := assistant.DefaultConfig()
		if t, _ := cmd.Flags().GetFloat64("threshold"); t > 0 {
			cfg.SimilarityThreshold = t
		}
		// Explanations never moderate, so an in-memory store is enough.
		eng := assistant.New(base, storage.NewStore(storage.NewMemoryBackend()), cfg)

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(eng.Explain(strings.Join(args, " "), env, limit))
	},
}

func init() {
	explainCmd.Flags().String("env", "public", "environment: public or operational")
	explainCmd.Flags().Int("limit", 5, "number of candidates to show")
	explainCmd.Flags().String("kb", "", "knowledge base YAML (default: embedded)")
	explainCmd.Flags().Float64("threshold", 0, "similarity threshold override")
}

// --- incidents ---

var incidentsCmd = &cobra.Command{
	Use:   "incidents",
	Short: "List moderation incidents",
	RunE: func(cmd *cobra.Command, args []string) error {
		q := url.Values{}
		for _, name := range []string{"user", "kind", "since"} {
			if v, _ := cmd.Flags().GetString(name); v != "" {
				q.Set(name, v)
			}
		}
		limit, _ := cmd.Flags().GetInt("limit")
		q.Set("limit", strconv.Itoa(limit))

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		records, err := client.incidents(cmd.Context(), q)
		if err != nil {
			return err
		}
		writeIncidents(cmd.OutOrStdout(), records)
		return nil
	},
}

func writeIncidents(w io.Writer, records []storage.BehaviorRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No incidents.")
		return
	}
	for _, r := range records {
		kind := string(r.Kind)
		if r.Kind == storage.KindBlock {
			kind = colorize(colorRed, fmt.Sprintf("block %dh", r.DurationHours))
		} else {
			kind = colorize(colorYellow, kind)
		}
		fmt.Fprintf(w, "%s  %-16s %s  %q\n", r.Timestamp.Format(time.RFC3339), r.UserID, kind, r.Reason)
	}
}

func init() {
	incidentsCmd.Flags().String("user", "", "only this user")
	incidentsCmd.Flags().String("kind", "", "warning or block")
	incidentsCmd.Flags().String("since", "", "RFC3339 lower bound")
	incidentsCmd.Flags().Int("limit", 50, "maximum number of incidents")
}

// --- unanswered ---

var unansweredCmd = &cobra.Command{
	Use:   "unanswered",
	Short: "List questions nothing could answer",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		output, _ := cmd.Flags().GetString("output")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		questions, err := client.unanswered(cmd.Context(), limit)
		if err != nil {
			return err
		}

		if output == "" {
			for _, q := range questions {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  [%s] %s\n", q.Timestamp.Format(time.RFC3339), q.Environment, q.Text)
			}
			return nil
		}

		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		if err := exportJSONL(f, questions); err != nil {
			return err
		}
		printSuccess("Exported %d questions to %s", len(questions), output)
		return nil
	},
}

// exportJSONL writes one JSON object per line.
func exportJSONL[T any](w io.Writer, items []T) error {
	enc := json.NewEncoder(w)
	for _, it := range items {
		if err := enc.Encode(it); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	unansweredCmd.Flags().Int("limit", 50, "maximum number of questions")
	unansweredCmd.Flags().String("output", "", "write JSONL to this file instead of printing")
}

// --- user ---

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Inspect users",
}

var userStatusCmd = &cobra.Command{
	Use:   "status <user-id>",
	Short: "Show a user's moderation state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		st, err := client.userStatus(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		printStatus("State", "%s", st.State)
		printStatus("Warnings", "%d", st.Warnings)
		if st.BlockedUntil != nil {
			printStatus("Blocked until", "%s", st.BlockedUntil.Local().Format(time.RFC1123))
		}
		return nil
	},
}

func init() {
	userCmd.AddCommand(userStatusCmd)
}

// --- kb ---

var kbCmd = &cobra.Command{
	Use:   "kb",
	Short: "Inspect knowledge bases",
}

var kbValidateCmd = &cobra.Command{
	Use:   "validate [path]",
	Short: "Validate a knowledge base YAML file (default: embedded)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) == 1 {
			path = args[0]
		}
		printStep("Loading %s", orDefault(path, "embedded knowledge base"))

		base, err := knowledge.LoadFile(path)
		if err != nil {
			printError("invalid knowledge base")
			return err
		}

		counts := map[knowledge.Scope]int{}
		for _, e := range base.Entries() {
			counts[e.Scope]++
		}
		printSuccess("%d entries (public %d, operational %d, both %d); FAQ public %d, operational %d",
			base.Len(),
			counts[knowledge.ScopePublic], counts[knowledge.ScopeOperational], counts[knowledge.ScopeBoth],
			len(base.FAQ(knowledge.Public)), len(base.FAQ(knowledge.Operational)),
		)
		return nil
	},
}

var kbListCmd = &cobra.Command{
	Use:   "list",
	Short: "List knowledge base entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("kb")
		base, err := knowledge.LoadFile(path)
		if err != nil {
			return err
		}
		for _, e := range base.Entries() {
			fmt.Fprintf(cmd.OutOrStdout(), "%-20s %-12s %s\n", e.ID, e.Scope, e.Question)
		}
		return nil
	},
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func init() {
	kbListCmd.Flags().String("kb", "", "knowledge base YAML (default: embedded)")
	kbCmd.AddCommand(kbValidateCmd)
	kbCmd.AddCommand(kbListCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long:  "Set a configuration value. Valid keys: " + strings.Join(config.ValidKeys(), ", "),
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Restore a configuration value to its default",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.UnsetKey(args[0]); err != nil {
			return err
		}
		printSuccess("Unset %s", args[0])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
}
