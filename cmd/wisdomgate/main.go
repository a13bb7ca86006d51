// wisdomgate checks cultural-wisdom permissions and enhances responses
// only with knowledge the requester may use.
package main

import "github.com/ppiankov/wisdomgate/internal/cli"

func main() {
	cli.Execute()
}
