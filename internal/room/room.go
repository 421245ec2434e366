// Package room derives the conversation identifier shared by a pair of users.
package room

// Separator joins the two participant ids. User ids are hex/uuid strings, so
// an underscore can never collide with id content.
const Separator = "_"

// ID returns the canonical room identifier for an unordered pair of user ids.
// It is commutative (ID(a,b) == ID(b,a)) and stable across restarts: the pair
// is sorted lexicographically before joining.
func ID(userA, userB string) string {
	if userB < userA {
		userA, userB = userB, userA
	}
	return userA + Separator + userB
}
