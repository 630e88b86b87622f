package version

import (
	goversion "github.com/caarlos0/go-version"
)

const (
	Application = "leaveportal"
	Description = "Web front-end for the leave management API"
	WebSite     = "https://github.com/leaveportal/leaveportal"
)

// Set through -ldflags "-X leaveportal/internal/platform/version.Version=...".
var (
	Version   = ""
	Commit    = ""
	Date      = ""
	BuiltBy   = ""
	TreeState = ""
)

func Info() goversion.Info {
	return goversion.GetVersionInfo(
		goversion.WithAppDetails(Application, Description, WebSite),
		func(i *goversion.Info) {
			if Commit != "" {
				i.GitCommit = Commit
			}
			if Version != "" {
				i.GitVersion = Version
			}
			if TreeState != "" {
				i.GitTreeState = TreeState
			}
			if Date != "" {
				i.BuildDate = Date
			}
			if BuiltBy != "" {
				i.BuiltBy = BuiltBy
			}
		},
	)
}
