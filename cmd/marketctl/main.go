package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/infomarket/server/pkg/client"
)

// version is overridden via -ldflags "-X main.version=...".
var version = "dev"

var (
	marketURL string
	cfgFile   string
	authToken string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "marketctl",
	Short: "infomarket CLI",
	Long: `marketctl is the command-line interface for the recursive information
market. It lets buyers post decision contexts, sellers post and manage
offers, and either side run inspections, subscriptions, and abuse reports
against a running market server.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(home + "/.marketctl")
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
		viper.AutomaticEnv()
		_ = viper.ReadInConfig()

		if marketURL == "" {
			marketURL = viper.GetString("market_url")
		}
		if marketURL == "" {
			marketURL = "http://localhost:8080"
		}
		if authToken == "" {
			authToken = viper.GetString("token")
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.marketctl/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&marketURL, "market", "", "market server URL (default http://localhost:8080)")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", "", "Bearer session token (default: token from config/login)")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(signupCmd)
	rootCmd.AddCommand(buyerCmd)
	rootCmd.AddCommand(sellerCmd)
	rootCmd.AddCommand(botSellerCmd)
	rootCmd.AddCommand(contextCmd)
	rootCmd.AddCommand(offerCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(subscriptionCmd)
	rootCmd.AddCommand(inboxCmd)
	rootCmd.AddCommand(abuseCmd)
	rootCmd.AddCommand(versionCmd)
}

func newClient() (*client.Client, error) {
	var opts []client.Option
	if authToken != "" {
		opts = append(opts, client.WithBearerToken(authToken))
	}
	return client.New(marketURL, opts...)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseUUID(s, label string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.UUID{}, fmt.Errorf("invalid %s %q: %w", label, s, err)
	}
	return id, nil
}

// ── login / signup ───────────────────────────────────────────────────────

var loginCmd = &cobra.Command{
	Use:   "login <email>",
	Short: "Log in and print a session token",
	Long: `login authenticates against the market server and prints the issued
session token. Save it to ~/.marketctl/config.yaml as "token: ..." (or pass
--token on every subsequent command) to avoid logging in again.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		email := args[0]
		password, err := readPassword("Password: ")
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		result, err := c.Login(context.Background(), email, password)
		if err != nil {
			return fmt.Errorf("login: %w", err)
		}
		fmt.Printf("token: %s\n", result.Token)
		return nil
	},
}

var signupCmd = &cobra.Command{
	Use:   "signup <email> <display-name>",
	Short: "Create a new account and print a session token",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		email, displayName := args[0], args[1]
		password, err := readPassword("Password: ")
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		result, err := c.Signup(context.Background(), email, password, displayName)
		if err != nil {
			return fmt.Errorf("signup: %w", err)
		}
		fmt.Printf("token: %s\n", result.Token)
		fmt.Println("Check your email to verify your address.")
		return nil
	},
}

func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	pw, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimSpace(pw), nil
}

// ── profiles ─────────────────────────────────────────────────────────────

var buyerCmd = &cobra.Command{
	Use:   "buyer",
	Short: "Register and inspect your buyer profile",
}

var (
	buyerDefaultModel  string
	buyerDefaultBudget float64
)

var buyerCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Register the logged-in account as a buyer",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		b, err := c.CreateBuyerProfile(context.Background(), client.CreateBuyerProfileRequest{
			DefaultAgentModel: buyerDefaultModel, DefaultMaxBudget: buyerDefaultBudget,
		})
		if err != nil {
			return fmt.Errorf("create buyer profile: %w", err)
		}
		return printJSON(b)
	},
}

var buyerMeCmd = &cobra.Command{
	Use:   "me",
	Short: "Show your buyer profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		b, err := c.GetMyBuyerProfile(context.Background())
		if err != nil {
			return fmt.Errorf("get buyer profile: %w", err)
		}
		return printJSON(b)
	},
}

func init() {
	buyerCreateCmd.Flags().StringVar(&buyerDefaultModel, "default-model", "", "Default agent model for new contexts")
	buyerCreateCmd.Flags().Float64Var(&buyerDefaultBudget, "default-budget", 50, "Default max budget for new contexts")

	buyerCmd.AddCommand(buyerCreateCmd, buyerMeCmd)
}

var sellerCmd = &cobra.Command{
	Use:   "seller",
	Short: "Register and inspect your human-seller profile",
}

var sellerDisplayName string

var sellerCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Register the logged-in account as a human seller",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		p, err := c.CreateHumanSellerProfile(context.Background(), client.CreateHumanSellerProfileRequest{
			DisplayName: sellerDisplayName,
		})
		if err != nil {
			return fmt.Errorf("create seller profile: %w", err)
		}
		return printJSON(p)
	},
}

var sellerMeCmd = &cobra.Command{
	Use:   "me",
	Short: "Show your human-seller profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		p, err := c.GetMySellerProfile(context.Background())
		if err != nil {
			return fmt.Errorf("get seller profile: %w", err)
		}
		return printJSON(p)
	},
}

func init() {
	sellerCreateCmd.Flags().StringVar(&sellerDisplayName, "display-name", "", "Public display name")
	_ = sellerCreateCmd.MarkFlagRequired("display-name")

	sellerCmd.AddCommand(sellerCreateCmd, sellerMeCmd)
}

var botSellerCmd = &cobra.Command{
	Use:   "bot-seller",
	Short: "Create and list automated bot sellers",
}

var (
	botName      string
	botInfo      string
	botPrice     float64
	botLLMModel  string
	botLLMPrompt string
)

var botSellerCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Register a new bot seller (fixed-text or LLM-backed)",
	Long: `create registers a new automated bot seller owned by the logged-in
account. Provide either --info and --price for a fixed-text bot, or
--llm-model and --llm-prompt for one that synthesizes replies via an LLM
call. The account must already have a human-seller profile, or own another
bot seller.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		req := client.CreateBotSellerProfileRequest{
			Name: botName, Info: botInfo, LLMModel: botLLMModel, LLMPrompt: botLLMPrompt,
		}
		if cmd.Flags().Changed("price") {
			req.Price = &botPrice
		}
		b, err := c.CreateBotSellerProfile(context.Background(), req)
		if err != nil {
			return fmt.Errorf("create bot seller: %w", err)
		}
		return printJSON(b)
	},
}

var botSellerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the bot sellers you own",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		bots, err := c.ListBotSellerProfiles(context.Background())
		if err != nil {
			return fmt.Errorf("list bot sellers: %w", err)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tMODE")
		for _, b := range bots {
			mode := "llm"
			if b.Info != "" {
				mode = "fixed-text"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", b.ID, b.Name, mode)
		}
		return w.Flush()
	},
}

func init() {
	botSellerCreateCmd.Flags().StringVar(&botName, "name", "", "Bot seller display name")
	botSellerCreateCmd.Flags().StringVar(&botInfo, "info", "", "Fixed-text reply content")
	botSellerCreateCmd.Flags().Float64Var(&botPrice, "price", 0, "Asking price for the fixed-text reply")
	botSellerCreateCmd.Flags().StringVar(&botLLMModel, "llm-model", "", "LLM model name, for an LLM-backed bot")
	botSellerCreateCmd.Flags().StringVar(&botLLMPrompt, "llm-prompt", "", "System prompt, for an LLM-backed bot")
	_ = botSellerCreateCmd.MarkFlagRequired("name")

	botSellerCmd.AddCommand(botSellerCreateCmd, botSellerListCmd)
}

// ── contexts ─────────────────────────────────────────────────────────────

var contextCmd = &cobra.Command{
	Use:   "context",
	Short: "Create and manage decision contexts",
}

var (
	ctxQuery     string
	ctxPages     []string
	ctxMaxBudget float64
	ctxPriority  int
)

var contextCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Post a new decision context",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		dc, err := c.CreateContext(context.Background(), client.CreateContextRequest{
			Query: ctxQuery, Pages: ctxPages, MaxBudget: ctxMaxBudget, Priority: ctxPriority,
		})
		if err != nil {
			return fmt.Errorf("create context: %w", err)
		}
		return printJSON(dc)
	},
}

var contextGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Fetch a decision context by id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseUUID(args[0], "context id")
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		dc, err := c.GetContext(context.Background(), id)
		if err != nil {
			return fmt.Errorf("get context: %w", err)
		}
		return printJSON(dc)
	},
}

var contextListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your own decision contexts",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		contexts, err := c.ListContexts(context.Background(), 0, 0)
		if err != nil {
			return fmt.Errorf("list contexts: %w", err)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tQUERY\tBUDGET\tPRIORITY\tCREATED")
		for _, dc := range contexts {
			fmt.Fprintf(w, "%s\t%s\t%.2f\t%d\t%s\n", dc.ID, dc.Query, dc.MaxBudget, dc.Priority, dc.CreatedAt.Format(time.RFC3339))
		}
		return w.Flush()
	},
}

var contextDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a decision context, cancelling its running inspection",
	Long: `delete removes the context. A running inspection on it is cancelled and
then settles or refunds the escrow itself; deleting a context on which no
inspection runs does not refund its escrow.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseUUID(args[0], "context id")
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		if err := c.DeleteContext(context.Background(), id); err != nil {
			return fmt.Errorf("delete context: %w", err)
		}
		fmt.Println("deleted")
		return nil
	},
}

func init() {
	contextCreateCmd.Flags().StringVar(&ctxQuery, "query", "", "Free-text decision question")
	contextCreateCmd.Flags().StringSliceVar(&ctxPages, "page", nil, "Context page URL (repeatable)")
	contextCreateCmd.Flags().Float64Var(&ctxMaxBudget, "max-budget", 0, "Maximum spend for this context")
	contextCreateCmd.Flags().IntVar(&ctxPriority, "priority", 0, "Priority tier for matching")
	_ = contextCreateCmd.MarkFlagRequired("max-budget")

	contextCmd.AddCommand(contextCreateCmd, contextGetCmd, contextListCmd, contextDeleteCmd)
}

// ── offers ───────────────────────────────────────────────────────────────

var offerCmd = &cobra.Command{
	Use:   "offer",
	Short: "Post and manage info offers against a context",
}

var (
	offerPrivateInfo string
	offerPublicInfo  string
	offerPrice       float64
)

var offerCreateCmd = &cobra.Command{
	Use:   "create <context-id>",
	Short: "Post an offer against a context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctxID, err := parseUUID(args[0], "context id")
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		o, err := c.CreateOffer(context.Background(), ctxID, client.CreateOfferRequest{
			PrivateInfo: offerPrivateInfo, PublicInfo: offerPublicInfo, Price: offerPrice,
		})
		if err != nil {
			return fmt.Errorf("create offer: %w", err)
		}
		return printJSON(o)
	},
}

var offerListCmd = &cobra.Command{
	Use:   "list <context-id>",
	Short: "List offers on a context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctxID, err := parseUUID(args[0], "context id")
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		offers, err := c.ListOffers(context.Background(), ctxID)
		if err != nil {
			return fmt.Errorf("list offers: %w", err)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSELLER\tPRICE\tINSPECTED\tPURCHASED")
		for _, o := range offers {
			fmt.Fprintf(w, "%s\t%s\t%.2f\t%t\t%t\n", o.ID, o.SellerID, o.Price, o.Inspected, o.Purchased)
		}
		return w.Flush()
	},
}

var offerDeleteCmd = &cobra.Command{
	Use:   "delete <context-id> <offer-id>",
	Short: "Withdraw an offer you own as seller",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctxID, err := parseUUID(args[0], "context id")
		if err != nil {
			return err
		}
		offerID, err := parseUUID(args[1], "offer id")
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		if err := c.DeleteOffer(context.Background(), ctxID, offerID); err != nil {
			return fmt.Errorf("delete offer: %w", err)
		}
		fmt.Println("deleted")
		return nil
	},
}

func init() {
	offerCreateCmd.Flags().StringVar(&offerPrivateInfo, "private", "", "Private answer content, revealed only to the buyer once purchased")
	offerCreateCmd.Flags().StringVar(&offerPublicInfo, "public", "", "Public teaser shown to everyone")
	offerCreateCmd.Flags().Float64Var(&offerPrice, "price", 0, "Asking price")
	_ = offerCreateCmd.MarkFlagRequired("private")
	_ = offerCreateCmd.MarkFlagRequired("price")

	offerCmd.AddCommand(offerCreateCmd, offerListCmd, offerDeleteCmd)
}

// ── inspections ──────────────────────────────────────────────────────────

var inspectCmd = &cobra.Command{
	Use:   "inspect <context-id> [offer-id...]",
	Short: "Start an inspection run and poll until it completes",
	Long: `inspect starts the bounded-recursion inspection engine over the given
offers (all known offers when none are listed), prints the job id, and
blocks until the job reaches a terminal state, then prints the job as JSON.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctxID, err := parseUUID(args[0], "context id")
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}

		offerIDs, err := resolveOfferIDs(c, ctxID, args[1:])
		if err != nil {
			return err
		}

		result, err := c.StartInspection(context.Background(), ctxID, offerIDs)
		if err != nil {
			return fmt.Errorf("start inspection: %w", err)
		}
		fmt.Printf("job: %s\n", result.JobID)

		job, err := c.WaitForJob(context.Background(), result.JobID, 2*time.Second)
		if err != nil {
			return fmt.Errorf("wait for job: %w", err)
		}
		return printJSON(job)
	},
}

func resolveOfferIDs(c *client.Client, ctxID uuid.UUID, raw []string) ([]uuid.UUID, error) {
	if len(raw) > 0 {
		ids := make([]uuid.UUID, len(raw))
		for i, s := range raw {
			id, err := parseUUID(s, "offer id")
			if err != nil {
				return nil, err
			}
			ids[i] = id
		}
		return ids, nil
	}
	offers, err := c.ListOffers(context.Background(), ctxID)
	if err != nil {
		return nil, fmt.Errorf("list offers: %w", err)
	}
	ids := make([]uuid.UUID, len(offers))
	for i, o := range offers {
		ids[i] = o.ID
	}
	return ids, nil
}

// ── subscriptions / inbox ────────────────────────────────────────────────

var subscriptionCmd = &cobra.Command{
	Use:   "subscription",
	Short: "Manage seller subscriptions",
}

var (
	subKeywords    []string
	subMinBudget   float64
	subMinPriority int
)

var subscriptionCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Register a standing match predicate",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		s, err := c.CreateSubscription(context.Background(), client.CreateSubscriptionRequest{
			Keywords: subKeywords, MinBudget: subMinBudget, MinPriority: subMinPriority,
		})
		if err != nil {
			return fmt.Errorf("create subscription: %w", err)
		}
		return printJSON(s)
	},
}

var subscriptionDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Remove a subscription",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseUUID(args[0], "subscription id")
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		if err := c.DeleteSubscription(context.Background(), id); err != nil {
			return fmt.Errorf("delete subscription: %w", err)
		}
		fmt.Println("deleted")
		return nil
	},
}

func init() {
	subscriptionCreateCmd.Flags().StringSliceVar(&subKeywords, "keyword", nil, "Keyword to match (repeatable)")
	subscriptionCreateCmd.Flags().Float64Var(&subMinBudget, "min-budget", 0, "Minimum context budget to match")
	subscriptionCreateCmd.Flags().IntVar(&subMinPriority, "min-priority", 0, "Minimum context priority to match")

	subscriptionCmd.AddCommand(subscriptionCreateCmd, subscriptionDeleteCmd)
}

var inboxCmd = &cobra.Command{
	Use:   "inbox <subscription-id>",
	Short: "List contexts matched to a subscription",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseUUID(args[0], "subscription id")
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		contexts, err := c.GetInbox(context.Background(), id)
		if err != nil {
			return fmt.Errorf("get inbox: %w", err)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tQUERY\tBUDGET\tPRIORITY")
		for _, dc := range contexts {
			fmt.Fprintf(w, "%s\t%s\t%.2f\t%d\n", dc.ID, dc.Query, dc.MaxBudget, dc.Priority)
		}
		return w.Flush()
	},
}

// ── abuse ────────────────────────────────────────────────────────────────

var abuseCmd = &cobra.Command{
	Use:   "abuse",
	Short: "File and triage abuse reports",
}

var (
	abuseTargetKind string
	abuseReason     string
	abuseDetails    string
)

var abuseFileCmd = &cobra.Command{
	Use:   "file <target-id>",
	Short: "File an abuse report against an offer or subscription",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		targetID, err := parseUUID(args[0], "target id")
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		r, err := c.FileAbuseReport(context.Background(), client.CreateAbuseReportRequest{
			TargetKind: abuseTargetKind, TargetID: targetID, Reason: abuseReason, Details: abuseDetails,
		})
		if err != nil {
			return fmt.Errorf("file abuse report: %w", err)
		}
		return printJSON(r)
	},
}

var abuseQueueCmd = &cobra.Command{
	Use:   "queue",
	Short: "List open abuse reports (moderator only)",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		reports, err := c.ListAbuseQueue(context.Background(), 50)
		if err != nil {
			return fmt.Errorf("list abuse queue: %w", err)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTARGET\tREASON\tSCORE\tSTATUS")
		for _, r := range reports {
			fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%s\n", r.ID, r.TargetID, r.Reason, r.Score, r.Status)
		}
		return w.Flush()
	},
}

var abuseResolveCmd = &cobra.Command{
	Use:   "resolve <report-id> <status>",
	Short: "Resolve or dismiss an abuse report (moderator only)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseUUID(args[0], "report id")
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		if err := c.ResolveAbuseReport(context.Background(), id, args[1], abuseDetails); err != nil {
			return fmt.Errorf("resolve abuse report: %w", err)
		}
		fmt.Println("resolved")
		return nil
	},
}

func init() {
	abuseFileCmd.Flags().StringVar(&abuseTargetKind, "target-kind", "offer", "Target kind: offer or subscription")
	abuseFileCmd.Flags().StringVar(&abuseReason, "reason", "", "Short reason code")
	abuseFileCmd.Flags().StringVar(&abuseDetails, "details", "", "Free-text details")
	_ = abuseFileCmd.MarkFlagRequired("reason")

	abuseResolveCmd.Flags().StringVar(&abuseDetails, "note", "", "Resolution note")

	abuseCmd.AddCommand(abuseFileCmd, abuseQueueCmd, abuseResolveCmd)
}

// ── version ──────────────────────────────────────────────────────────────

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the marketctl CLI version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("marketctl %s\n", version)
	},
}
