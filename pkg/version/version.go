package version

import "fmt"

var (
	// Set at build time via -ldflags.
	Version = "v0.0.0-dev"
	Commit  = "HEAD"
)

type Info struct {
	Version string `json:"version,omitempty"`
	Commit  string `json:"commit,omitempty"`
}

func Get() Info {
	return Info{
		Version: Version,
		Commit:  Commit,
	}
}

func (i Info) String() string {
	return fmt.Sprintf("%s (%s)", i.Version, i.Commit)
}
