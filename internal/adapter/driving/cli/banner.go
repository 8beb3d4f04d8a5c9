package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/finopsworks/aws-cost-reports-go/pkg/version"
)

// displayWelcomeBanner exibe o banner de boas-vindas com informações de versão.
func displayWelcomeBanner(versionStr string) {
	banner := `
           /$$$$$$                        /$$           /$$$$$$$                                              /$$
          /$$__  $$                      | $$          | $$__  $$                                            | $$
         | $$  \__/  /$$$$$$   /$$$$$$$ /$$$$$$        | $$  \ $$  /$$$$$$   /$$$$$$   /$$$$$$   /$$$$$$    /$$$$$$   /$$$$$$$
         | $$       /$$__  $$ /$$_____/|_  $$_/        | $$$$$$$/ /$$__  $$ /$$__  $$ /$$__  $$ /$$__  $$  |_  $$_/  /$$_____/
         | $$      | $$  \ $$|  $$$$$$   | $$          | $$__  $$| $$$$$$$$| $$  \ $$| $$  \ $$| $$  \__/    | $$   |  $$$$$$
         | $$    $$| $$  | $$ \____  $$  | $$ /$$      | $$  \ $$| $$_____/| $$  | $$| $$  | $$| $$          | $$ /$$\____  $$
         |  $$$$$$/|  $$$$$$/ /$$$$$$$/  |  $$$$/      | $$  | $$|  $$$$$$$| $$$$$$$/|  $$$$$$/| $$          |  $$$$//$$$$$$$/
          \______/  \______/ |_______/    \___/        |__/  |__/ \_______/| $$____/  \______/ |__/           \___/ |_______/
                                                                           | $$
                                                                           | $$
                                                                           |__/
        `
	red := color.New(color.FgRed, color.Bold).SprintFunc()
	blue := color.New(color.FgBlue, color.Bold).SprintFunc()

	fmt.Println(red(banner))

	// Obtem a string formatada da versão através do pacote version
	formattedVersion := version.FormatVersion()
	fmt.Println(blue(fmt.Sprintf("AWS Cost Reports CLI (v%s)", formattedVersion)))
}
