package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/qs3c/cafe_sub_server/internal/model/dto"
)

func scanCmd() *cobra.Command {
	var (
		redeem   bool
		quantity int
	)

	cmd := &cobra.Command{
		Use:   "scan [payload]",
		Short: "Look up a customer QR payload (JSON or bare phone) and optionally redeem",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _ := newClient()

			if !redeem {
				lookup, err := c.Scan(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(lookup)
				}
				if lookup.CustomerName != "" {
					fmt.Printf("Customer: %s\n", lookup.CustomerName)
				}
				printCandidates(lookup.Candidates)
				return nil
			}

			result, err := c.ScanAndRedeem(cmd.Context(), args[0], quantity, promptChoice)
			if err != nil {
				return err
			}
			return printRedemption(result)
		},
	}

	cmd.Flags().BoolVarP(&redeem, "redeem", "r", false, "Redeem after lookup")
	cmd.Flags().IntVarP(&quantity, "quantity", "q", 1, "Cups to redeem")

	return cmd
}

func redeemCmd() *cobra.Command {
	var quantity int

	cmd := &cobra.Command{
		Use:   "redeem [subscription-id]",
		Short: "Redeem cups from a subscription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			subID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid subscription id %q", args[0])
			}

			c, _ := newClient()
			result, err := c.Redeem(cmd.Context(), subID, quantity)
			if err != nil {
				return err
			}
			return printRedemption(result)
		},
	}

	cmd.Flags().IntVarP(&quantity, "quantity", "q", 1, "Cups to redeem")

	return cmd
}

func historyCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [subscription-id]",
		Short: "Show recent redemptions of a subscription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			subID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid subscription id %q", args[0])
			}

			c, _ := newClient()
			history, err := c.History(cmd.Context(), subID, limit)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(history)
			}

			fmt.Printf("#%d %s (%s)\n", history.SubscriptionID, history.PlanName, history.ProductName)
			for _, item := range history.Items {
				fmt.Printf("%s  x%d  by %s\n", item.RedeemedAt, item.Quantity, item.StaffID)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum results")

	return cmd
}

func printCandidates(list []*dto.SubscriptionSummary) {
	for i, s := range list {
		days := "-"
		if s.RemainingDays != nil {
			days = strconv.Itoa(*s.RemainingDays)
		}
		fmt.Printf("[%d] #%d %s (%s) days left %s, today %d/%d\n",
			i+1, s.SubscriptionID, s.PlanName, s.ProductName, days, s.UsedToday, s.DailyQuota)
	}
}

// promptChoice 在终端列出候选订阅，读入序号
func promptChoice(candidates []*dto.SubscriptionSummary) *dto.SubscriptionSummary {
	printCandidates(candidates)
	fmt.Print("Choose a subscription: ")

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil || n < 1 || n > len(candidates) {
		return nil
	}
	return candidates[n-1]
}

func printRedemption(r *dto.RedemptionResult) error {
	if asJSON {
		return printJSON(r)
	}
	fmt.Printf("%s: %d x %s (%s)\n", r.Message, r.Quantity, r.ProductName, r.PlanName)
	fmt.Printf("Today %d/%d, %d left\n", r.UsedToday, r.DailyQuota, r.RemainingToday)
	return nil
}
