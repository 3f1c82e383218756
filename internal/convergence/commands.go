package convergence

import (
	"fmt"
	"strings"

	"github.com/imamik/rsjoin/internal/util/naming"
)

// InitiateScript builds the rs.initiate call for members in order. Member
// _id values are their index in addrs.
func InitiateScript(replicaSet string, addrs []string, port int) string {
	members := make([]string, 0, len(addrs))
	for idx, addr := range addrs {
		members = append(members, fmt.Sprintf(` { _id : %d, host : "%s" }`, idx, naming.MemberHost(addr, port)))
	}
	return fmt.Sprintf(`rs.initiate( { _id: "%s", members: [%s ] })`, replicaSet, strings.Join(members, ","))
}

// AddScript builds the rs.add call for one new member.
func AddScript(addr string, port, priority, votes int) string {
	return fmt.Sprintf(`rs.add( { host: "%s", priority: %d, votes: %d } )`, naming.MemberHost(addr, port), priority, votes)
}

// ShellCommand wraps a script for the database shell.
func ShellCommand(script string) string {
	return fmt.Sprintf("mongo --eval '%s'", script)
}
