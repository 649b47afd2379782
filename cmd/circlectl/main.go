// circlectl drives circle states from the command line. Without -node it is
// a stateless hex pipeline: commands take a hex-encoded state on the command
// line and print the successor state as hex. With -node, commands address
// circles on a circled daemon by id.
package main

import (
	"flag"
	"fmt"
	"os"

	"CirclePool/client"
)

const usage = `Usage: circlectl [-node addr] <command> [args...]

Stateless commands (hex state in, hex state out):
  create <circle_id> <contribution_per_round> <round_duration> <created_at> <creator_pubkey>
  add-member <state> <pubkey> <payout_round> <timestamp>
  contribute <state> <pubkey> <amount> <timestamp> <txid>
  payout <state> <timestamp>
  show <state>
  hash <state>
  verify <prev_state> <next_state>

With -node, the same operations run against a circled daemon:
  create <circle_id> <contribution_per_round> <round_duration> <created_at> <creator_pubkey>
  add-member <circle_id> <pubkey> <payout_round> <timestamp>
  contribute <circle_id> <pubkey> <amount> <timestamp> <txid>
  payout <circle_id> <timestamp>
  show <circle_id>

All ids and keys are hex: circle ids and txids are 32 bytes, pubkeys are
33-byte compressed secp256k1 points. Timestamps are Unix seconds.
`

func main() {
	node := flag.String("node", "", "circled daemon address for remote mode")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	var err error
	if *node != "" {
		err = runRemote(client.New(*node), args[0], args[1:])
	} else {
		err = runLocal(args[0], args[1:])
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func runLocal(cmd string, args []string) error {
	switch cmd {
	case "create":
		return cmdCreate(args)
	case "add-member":
		return cmdAddMember(args)
	case "contribute":
		return cmdContribute(args)
	case "payout":
		return cmdPayout(args)
	case "show":
		return cmdShow(args)
	case "hash":
		return cmdHash(args)
	case "verify":
		return cmdVerify(args)
	default:
		flag.Usage()
		return fmt.Errorf("unknown command: %s", cmd)
	}
}
