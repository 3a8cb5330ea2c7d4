// Package main implements the votesecure-cli command-line tool.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Om7972/votesecure-online-sub000/pkg/client"
	"github.com/Om7972/votesecure-online-sub000/pkg/models"
)

var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// getClient creates an API client from the command flags.
func getClient(cmd *cobra.Command) *client.Client {
	apiURL, _ := cmd.Root().PersistentFlags().GetString("api-url")
	actorID, _ := cmd.Root().PersistentFlags().GetString("actor-id")
	actorRole, _ := cmd.Root().PersistentFlags().GetString("actor-role")

	return client.New(client.Config{
		BaseURL:   apiURL,
		ActorID:   actorID,
		ActorRole: actorRole,
		Timeout:   30 * time.Second,
	})
}

func printJSON(v any) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(data))
}

var rootCmd = &cobra.Command{
	Use:     "votesecure-cli",
	Short:   "VoteSecure CLI - Online Election Platform",
	Long:    `VoteSecure CLI provides command-line access to vote ledger, tally, and audit operations.`,
	Version: version,
}

func init() {
	rootCmd.AddCommand(voteCmd)
	rootCmd.AddCommand(resultsCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(healthCmd)

	// Global flags
	rootCmd.PersistentFlags().String("api-url", "http://localhost:8080", "Voting service URL")
	rootCmd.PersistentFlags().String("actor-id", "", "Acting user ID")
	rootCmd.PersistentFlags().String("actor-role", "", "Acting user role")
}

// ============================================================================
// Vote Commands
// ============================================================================

var voteCmd = &cobra.Command{
	Use:   "vote",
	Short: "Vote ledger operations",
	Long:  `Cast, inspect, and transition votes through their lifecycle.`,
}

var voteCastCmd = &cobra.Command{
	Use:   "cast",
	Short: "Cast a ballot in an election",
	RunE:  runVoteCast,
}

var voteGetCmd = &cobra.Command{
	Use:   "get <vote-id>",
	Short: "Retrieve a vote by ID",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		vote, err := getClient(cmd).GetVote(context.Background(), args[0])
		if err != nil {
			return err
		}
		printJSON(vote)
		return nil
	},
}

var voteVerifyCmd = &cobra.Command{
	Use:   "verify <vote-id>",
	Short: "Verify a cast vote",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		vote, err := getClient(cmd).VerifyVote(context.Background(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Vote %s is now %s\n", vote.ID, vote.Status)
		return nil
	},
}

var voteCountCmd = &cobra.Command{
	Use:   "count <vote-id>",
	Short: "Count a verified vote",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		vote, err := getClient(cmd).CountVote(context.Background(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Vote %s is now %s\n", vote.ID, vote.Status)
		return nil
	},
}

var voteInvalidateCmd = &cobra.Command{
	Use:   "invalidate <vote-id>",
	Short: "Invalidate a vote",
	Args:  cobra.ExactArgs(1),
	RunE:  runVoteInvalidate,
}

var voteChallengeCmd = &cobra.Command{
	Use:   "challenge <vote-id>",
	Short: "Raise a challenge against a vote",
	Args:  cobra.ExactArgs(1),
	RunE:  runVoteChallenge,
}

var voteReviewCmd = &cobra.Command{
	Use:   "review <vote-id> <challenge-id>",
	Short: "Review an open challenge",
	Args:  cobra.ExactArgs(2),
	RunE:  runVoteReview,
}

var voteUnsealCmd = &cobra.Command{
	Use:   "unseal <vote-id>",
	Short: "Decrypt a sealed ballot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		unsealed, err := getClient(cmd).UnsealVote(context.Background(), args[0])
		if err != nil {
			return err
		}
		printJSON(unsealed)
		return nil
	},
}

var voteAnonymizeCmd = &cobra.Command{
	Use:   "anonymize <vote-id>",
	Short: "Replace the voter identity with an anonymous token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		vote, err := getClient(cmd).AnonymizeVote(context.Background(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Vote %s anonymized (voter token: %s)\n", vote.ID, vote.VoterID)
		return nil
	},
}

var voteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List votes by election or voter",
	RunE:  runVoteList,
}

func init() {
	voteCastCmd.Flags().String("election", "", "Election ID")
	voteCastCmd.Flags().String("voter", "", "Voter ID")
	voteCastCmd.Flags().String("candidate", "", "Candidate ID")
	voteCastCmd.Flags().String("write-in", "", "Write-in candidate name")
	voteCastCmd.Flags().String("write-in-description", "", "Write-in candidate description")

	voteInvalidateCmd.Flags().String("reason", "", "Invalidation reason (required)")

	voteChallengeCmd.Flags().String("reason", "", "Challenge reason (required)")

	voteReviewCmd.Flags().Bool("approve", false, "Approve the challenge (invalidates the vote)")
	voteReviewCmd.Flags().String("resolution", "", "Resolution note")

	voteListCmd.Flags().String("election", "", "List votes for an election")
	voteListCmd.Flags().String("voter", "", "List votes for a voter")

	voteCmd.AddCommand(voteCastCmd)
	voteCmd.AddCommand(voteGetCmd)
	voteCmd.AddCommand(voteVerifyCmd)
	voteCmd.AddCommand(voteCountCmd)
	voteCmd.AddCommand(voteInvalidateCmd)
	voteCmd.AddCommand(voteChallengeCmd)
	voteCmd.AddCommand(voteReviewCmd)
	voteCmd.AddCommand(voteUnsealCmd)
	voteCmd.AddCommand(voteAnonymizeCmd)
	voteCmd.AddCommand(voteListCmd)
}

func runVoteCast(cmd *cobra.Command, args []string) error {
	electionID, _ := cmd.Flags().GetString("election")
	voterID, _ := cmd.Flags().GetString("voter")
	candidateID, _ := cmd.Flags().GetString("candidate")
	writeIn, _ := cmd.Flags().GetString("write-in")
	writeInDesc, _ := cmd.Flags().GetString("write-in-description")

	if electionID == "" {
		return fmt.Errorf("--election is required")
	}
	if voterID == "" {
		return fmt.Errorf("--voter is required")
	}
	if candidateID == "" && writeIn == "" {
		return fmt.Errorf("either --candidate or --write-in is required")
	}

	req := client.CastVoteRequest{
		VoterID:     voterID,
		CandidateID: candidateID,
	}
	if writeIn != "" {
		req.WriteIn = &client.WriteInRequest{
			Name:        writeIn,
			Description: writeInDesc,
		}
	}

	resp, err := getClient(cmd).CastVote(context.Background(), electionID, req)
	if err != nil {
		return err
	}

	fmt.Printf("Vote cast: %s\n", resp.Vote.ID)
	fmt.Printf("Receipt: %s\n", resp.ReceiptHash)
	return nil
}

func runVoteInvalidate(cmd *cobra.Command, args []string) error {
	reason, _ := cmd.Flags().GetString("reason")
	if reason == "" {
		return fmt.Errorf("--reason is required")
	}

	vote, err := getClient(cmd).InvalidateVote(context.Background(), args[0], reason)
	if err != nil {
		return err
	}

	fmt.Printf("Vote %s invalidated\n", vote.ID)
	return nil
}

func runVoteChallenge(cmd *cobra.Command, args []string) error {
	reason, _ := cmd.Flags().GetString("reason")
	if reason == "" {
		return fmt.Errorf("--reason is required")
	}

	vote, err := getClient(cmd).ChallengeVote(context.Background(), args[0], reason)
	if err != nil {
		return err
	}

	for _, challenge := range vote.Challenges {
		if challenge.Status == models.ChallengeStatusPending {
			fmt.Printf("Challenge raised: %s\n", challenge.ID)
			return nil
		}
	}
	fmt.Printf("Challenge raised against vote %s\n", vote.ID)
	return nil
}

func runVoteReview(cmd *cobra.Command, args []string) error {
	approve, _ := cmd.Flags().GetBool("approve")
	resolution, _ := cmd.Flags().GetString("resolution")

	vote, err := getClient(cmd).ReviewChallenge(context.Background(), args[0], args[1], approve, resolution)
	if err != nil {
		return err
	}

	fmt.Printf("Challenge reviewed. Vote %s is now %s\n", vote.ID, vote.Status)
	return nil
}

func runVoteList(cmd *cobra.Command, args []string) error {
	electionID, _ := cmd.Flags().GetString("election")
	voterID, _ := cmd.Flags().GetString("voter")

	ctx := context.Background()
	c := getClient(cmd)

	switch {
	case electionID != "":
		votes, err := c.ListVotesByElection(ctx, electionID)
		if err != nil {
			return err
		}
		for _, vote := range votes {
			fmt.Printf("%s  %s  %s\n", vote.ID, vote.VoterID, vote.Status)
		}
	case voterID != "":
		votes, err := c.ListVotesByVoter(ctx, voterID)
		if err != nil {
			return err
		}
		for _, vote := range votes {
			fmt.Printf("%s  %s  %s\n", vote.ID, vote.ElectionID, vote.Status)
		}
	default:
		return fmt.Errorf("either --election or --voter is required")
	}
	return nil
}

// ============================================================================
// Results Commands
// ============================================================================

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Election tally operations",
	Long:  `Recompute and inspect election results, counts, turnout, and stats.`,
}

var resultsGetCmd = &cobra.Command{
	Use:   "get <election-id>",
	Short: "Show the last computed results",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		results, err := getClient(cmd).GetResults(context.Background(), args[0])
		if err != nil {
			return err
		}
		printJSON(results)
		return nil
	},
}

var resultsRecomputeCmd = &cobra.Command{
	Use:   "recompute <election-id>",
	Short: "Recompute results from the vote ledger",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		results, err := getClient(cmd).RecomputeResults(context.Background(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Recomputed results for %s (%d valid votes)\n", results.ElectionID, results.TotalValidVotes)
		for _, cr := range results.CandidateResults {
			marker := " "
			if cr.IsWinner {
				marker = "*"
			}
			name := cr.Name
			if name == "" {
				name = cr.CandidateID
			}
			fmt.Printf("%s %-30s %6d  %6.2f%%\n", marker, name, cr.Votes, cr.Percentage)
		}
		return nil
	},
}

var resultsCountsCmd = &cobra.Command{
	Use:   "counts <election-id>",
	Short: "Show per-candidate counted vote totals",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		counts, err := getClient(cmd).GetVoteCounts(context.Background(), args[0])
		if err != nil {
			return err
		}
		printJSON(counts)
		return nil
	},
}

var resultsTurnoutCmd = &cobra.Command{
	Use:   "turnout <election-id>",
	Short: "Show voter turnout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		turnout, err := getClient(cmd).GetTurnout(context.Background(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Turnout for %s: %.2f%%\n", turnout.ElectionID, turnout.Turnout)
		return nil
	},
}

var resultsStatsCmd = &cobra.Command{
	Use:   "stats <election-id>",
	Short: "Show vote activity summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := getClient(cmd).GetVotingStats(context.Background(), args[0])
		if err != nil {
			return err
		}
		printJSON(stats)
		return nil
	},
}

func init() {
	resultsCmd.AddCommand(resultsGetCmd)
	resultsCmd.AddCommand(resultsRecomputeCmd)
	resultsCmd.AddCommand(resultsCountsCmd)
	resultsCmd.AddCommand(resultsTurnoutCmd)
	resultsCmd.AddCommand(resultsStatsCmd)
}

// ============================================================================
// Audit Commands
// ============================================================================

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit log operations",
	Long:  `Query, verify, and maintain the tamper-evident audit log.`,
}

var auditQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query audit log entries",
	RunE:  runAuditQuery,
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify <entry-id>",
	Short: "Verify an entry's integrity checksum",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := getClient(cmd).VerifyAuditEntry(context.Background(), args[0])
		if err != nil {
			return err
		}
		if result.Valid {
			fmt.Printf("Entry %s: checksum valid\n", result.ID)
		} else {
			fmt.Printf("Entry %s: CHECKSUM MISMATCH, possible tampering\n", result.ID)
		}
		return nil
	},
}

var auditSuspiciousCmd = &cobra.Command{
	Use:   "suspicious",
	Short: "Show flagged suspicious activity",
	RunE:  runAuditSuspicious,
}

var auditPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Soft-delete entries past their retention period",
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := getClient(cmd).PurgeExpiredAudit(context.Background())
		if err != nil {
			return err
		}
		fmt.Printf("Soft-deleted %d expired entries\n", result.SoftDeleted)
		return nil
	},
}

func init() {
	auditQueryCmd.Flags().String("action", "", "Filter by action")
	auditQueryCmd.Flags().String("category", "", "Filter by category")
	auditQueryCmd.Flags().String("actor", "", "Filter by actor ID")
	auditQueryCmd.Flags().String("risk", "", "Filter by risk level")
	auditQueryCmd.Flags().String("since", "", "Start time (RFC3339)")
	auditQueryCmd.Flags().String("until", "", "End time (RFC3339)")
	auditQueryCmd.Flags().Int("limit", 50, "Maximum entries")
	auditQueryCmd.Flags().Bool("json", false, "Output full entries as JSON")

	auditSuspiciousCmd.Flags().Int("hours", 24, "Lookback window in hours")

	auditCmd.AddCommand(auditQueryCmd)
	auditCmd.AddCommand(auditVerifyCmd)
	auditCmd.AddCommand(auditSuspiciousCmd)
	auditCmd.AddCommand(auditPurgeCmd)
}

func runAuditQuery(cmd *cobra.Command, args []string) error {
	action, _ := cmd.Flags().GetString("action")
	category, _ := cmd.Flags().GetString("category")
	actor, _ := cmd.Flags().GetString("actor")
	risk, _ := cmd.Flags().GetString("risk")
	since, _ := cmd.Flags().GetString("since")
	until, _ := cmd.Flags().GetString("until")
	limit, _ := cmd.Flags().GetInt("limit")
	asJSON, _ := cmd.Flags().GetBool("json")

	entries, err := getClient(cmd).QueryAudit(context.Background(), client.AuditQueryParams{
		Action:    action,
		Category:  category,
		ActorID:   actor,
		RiskLevel: risk,
		Since:     since,
		Until:     until,
		Limit:     limit,
	})
	if err != nil {
		return err
	}

	if asJSON {
		printJSON(entries)
		return nil
	}
	for _, entry := range entries {
		fmt.Printf("%s  %s  %s  %s  %s\n",
			entry.Timestamp.Format(time.RFC3339),
			entry.Action,
			entry.Actor.ID,
			entry.Security.RiskLevel,
			entry.ID,
		)
	}
	return nil
}

func runAuditSuspicious(cmd *cobra.Command, args []string) error {
	hours, _ := cmd.Flags().GetInt("hours")

	entries, err := getClient(cmd).FindSuspiciousActivity(context.Background(), hours)
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Printf("No suspicious activity in the last %d hours\n", hours)
		return nil
	}
	for _, entry := range entries {
		fmt.Printf("%s  %s  %s  %s\n",
			entry.Timestamp.Format(time.RFC3339),
			entry.Action,
			entry.Actor.ID,
			entry.ID,
		)
	}
	return nil
}

// ============================================================================
// Health Command
// ============================================================================

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check voting service health",
	RunE: func(cmd *cobra.Command, args []string) error {
		health, err := getClient(cmd).Health(context.Background())
		if err != nil {
			return err
		}
		fmt.Printf("Status: %s (version %s)\n", health.Status, health.Version)
		return nil
	},
}
