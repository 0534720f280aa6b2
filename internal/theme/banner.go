package theme

import (
	"fmt"
)

// Banner returns the CLI banner in Twitch purple.
func Banner() string {
	const purple = "\033[35m"
	const yellow = "\033[33m"
	const reset = "\033[0m"

	art := "" +
		"  ✦ " + purple + "GIFTBOARD" + reset + " ✦\n" +
		yellow + "  ─────────────────────────────\n" + reset +
		"  sub gift leaderboard for your stream overlay\n"
	return art
}

// PrintBanner prints the banner to stdout.
func PrintBanner() {
	fmt.Print(Banner())
}
