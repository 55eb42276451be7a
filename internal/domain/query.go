package domain

// QueryKey identifies a cached query. The first element names the query,
// later elements narrow it, e.g. ["task", "42"].
type QueryKey []string

func TasksKey() QueryKey     { return QueryKey{"tasks"} }
func DashboardKey() QueryKey { return QueryKey{"dashboard"} }

func TaskKey(taskID string) QueryKey {
	return QueryKey{"task", taskID}
}

// Matches reports whether k covers other: every element of k equals the
// element of other at the same position. ["task"] matches ["task", "42"].
func (k QueryKey) Matches(other QueryKey) bool {
	if len(k) > len(other) {
		return false
	}
	for i := range k {
		if k[i] != other[i] {
			return false
		}
	}
	return true
}
