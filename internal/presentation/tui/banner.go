package tui

import (
	"fmt"

	"github.com/muesli/termenv"
)

// PrintBanner outputs the ASCII art banner for Junction.
func PrintBanner(version string) {
	p := termenv.ColorProfile()
	// Teal-to-blue gradient
	s1 := termenv.String("    _                  _   _             ").Foreground(p.Color("#2dd4bf"))
	s2 := termenv.String("   (_)_   _ _ __   ___| |_(_) ___  _ __  ").Foreground(p.Color("#22d3ee"))
	s3 := termenv.String("   | | | | | '_ \\ / __| __| |/ _ \\| '_ \\ ").Foreground(p.Color("#38bdf8"))
	s4 := termenv.String("   | | |_| | | | | (__| |_| | (_) | | | |").Foreground(p.Color("#60a5fa"))
	s5 := termenv.String("  _/ |\\__,_|_| |_|\\___|\\__|_|\\___/|_| |_|").Foreground(p.Color("#818cf8"))
	s6 := termenv.String(" |__/                                    ").Foreground(p.Color("#a78bfa"))

	fmt.Println()
	fmt.Println(s1)
	fmt.Println(s2)
	fmt.Println(s3)
	fmt.Println(s4)
	fmt.Println(s5)
	fmt.Println(s6)
	fmt.Printf("   v%s\n\n", version)
}
