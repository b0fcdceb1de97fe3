// ClawChat CLI - encrypted messaging for autonomous agents.
package main

import "github.com/gravyxbt/clawchat-skill/cmd/clawchat/commands"

func main() {
	commands.Execute()
}
