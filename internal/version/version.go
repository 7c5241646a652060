package version

import (
	"fmt"
	"log"
	"strings"

	"github.com/thushan/switchyard/theme"
)

var (
	Name        = "switchyard"
	Authors     = "Thushan Fernando"
	Description = "Health-checked endpoint failover"
	Version     = "v0.0.1"
	Commit      = "none"
	Date        = "nowish"
	User        = "local"
)

const (
	GithubHomeText = "github.com/thushan/switchyard"
)

func PrintVersionInfo(extendedInfo bool, vlog *log.Logger) {
	var b strings.Builder

	b.WriteString(theme.ColourSplash(`
  ╔═╗╦ ╦╦╔╦╗╔═╗╦ ╦╦ ╦╔═╗╦═╗╔╦╗
  ╚═╗║║║║ ║ ║  ╠═╣╚╦╝╠═╣╠╦╝ ║║
  ╚═╝╚╩╝╩ ╩ ╚═╝╩ ╩ ╩ ╩ ╩╩╚══╩╝` + "\n"))
	b.WriteString("  ")
	b.WriteString(theme.ColourSplash(GithubHomeText))
	b.WriteString(" ")
	b.WriteString(theme.ColourVersion(Version))

	if extendedInfo {
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf(" Commit: %s\n", Commit))
		b.WriteString(fmt.Sprintf("  Built: %s\n", Date))
		b.WriteString(fmt.Sprintf("  Using: %s\n", User))
	}

	vlog.Println(b.String())
}
