package main

import (
	"fmt"

	"CirclePool/client"
)

// runRemote executes a command against a circled daemon. Arguments are the
// same as local mode except states are addressed by circle id.
func runRemote(c *client.Client, cmd string, args []string) error {
	switch cmd {
	case "create":
		return remoteCreate(c, args)
	case "add-member":
		return remoteAddMember(c, args)
	case "contribute":
		return remoteContribute(c, args)
	case "payout":
		return remotePayout(c, args)
	case "show":
		return remoteShow(c, args)
	default:
		return fmt.Errorf("unknown remote command: %s", cmd)
	}
}

func remoteCreate(c *client.Client, args []string) error {
	if len(args) != 5 {
		return fmt.Errorf("usage: create <circle_id> <contribution_per_round> <round_duration> <created_at> <creator_pubkey>")
	}

	contribution, err := parseUint("contribution_per_round", args[1])
	if err != nil {
		return err
	}
	duration, err := parseUint("round_duration", args[2])
	if err != nil {
		return err
	}
	createdAt, err := parseUint("created_at", args[3])
	if err != nil {
		return err
	}

	status, err := c.CreateCircle(args[0], contribution, duration, createdAt, args[4])
	if err != nil {
		return err
	}

	printStatus(status)
	return nil
}

func remoteAddMember(c *client.Client, args []string) error {
	if len(args) != 4 {
		return fmt.Errorf("usage: add-member <circle_id> <pubkey> <payout_round> <timestamp>")
	}

	payoutRound, err := parseUint32("payout_round", args[2])
	if err != nil {
		return err
	}
	timestamp, err := parseUint("timestamp", args[3])
	if err != nil {
		return err
	}

	status, err := c.AddMember(args[0], args[1], payoutRound, timestamp)
	if err != nil {
		return err
	}

	printStatus(status)
	return nil
}

func remoteContribute(c *client.Client, args []string) error {
	if len(args) != 5 {
		return fmt.Errorf("usage: contribute <circle_id> <pubkey> <amount> <timestamp> <txid>")
	}

	amount, err := parseUint("amount", args[2])
	if err != nil {
		return err
	}
	timestamp, err := parseUint("timestamp", args[3])
	if err != nil {
		return err
	}

	status, err := c.RecordContribution(args[0], args[1], amount, timestamp, args[4])
	if err != nil {
		return err
	}

	printStatus(status)
	return nil
}

func remotePayout(c *client.Client, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: payout <circle_id> <timestamp>")
	}

	timestamp, err := parseUint("timestamp", args[1])
	if err != nil {
		return err
	}

	result, err := c.ExecutePayout(args[0], timestamp)
	if err != nil {
		return err
	}

	fmt.Printf("recipient:  %s\n", result.Recipient)
	fmt.Printf("amount:     %d\n", result.Amount)
	printStatus(&result.CircleStatus)
	return nil
}

func remoteShow(c *client.Client, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: show <circle_id>")
	}

	status, err := c.GetCircle(args[0])
	if err != nil {
		return err
	}

	printStatus(status)
	return nil
}

func printStatus(s *client.CircleStatus) {
	fmt.Printf("circle:     %s\n", s.CircleID)
	fmt.Printf("state hash: %s\n", s.StateHash)
	fmt.Printf("round:      %d/%d\n", s.CurrentRound, s.TotalRounds)
	fmt.Printf("pool:       %d\n", s.CurrentPool)
	fmt.Printf("members:    %d\n", s.Members)
	fmt.Printf("funded:     %v\n", s.FullyFunded)
	fmt.Printf("complete:   %v\n", s.IsComplete)
}
