// Package build holds version information set with -ldflags -X.
package build

import "time"

var (
	commit  = ""
	date    = ""
	version = "dev"
	repoURL = ""
)

func init() {
	date, _ := time.Parse(time.RFC3339, date)

	Current = Build{
		Commit:  commit,
		Version: version,
		Date:    date,
		RepoURL: repoURL,
	}
	if repoURL != "" && commit != "" {
		Current.CommitURL = repoURL + "/tree/" + commit
	}
}

var Current Build

type Build struct {
	Commit    string    `json:"commit,omitempty"`
	Version   string    `json:"version"`
	Date      time.Time `json:"date,omitzero"`
	RepoURL   string    `json:"repo_url,omitempty"`
	CommitURL string    `json:"commit_url,omitempty"`
}

// String returns "porthole <version>", with the short commit when known.
func (b Build) String() string {
	s := "porthole " + b.Version
	if len(b.Commit) >= 7 {
		s += " (" + b.Commit[:7] + ")"
	}
	return s
}
