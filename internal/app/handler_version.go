package app

import (
	"net/http"
	"runtime"

	"github.com/thushan/switchyard/internal/adapter/balancer"
	"github.com/thushan/switchyard/internal/version"
)

type VersionResponse struct {
	Name        string    `json:"name"`
	Version     string    `json:"version"`
	Description string    `json:"description"`
	Build       BuildInfo `json:"build"`
	Strategies  []string  `json:"strategies"`
	CheckTypes  []string  `json:"check_types"`
}

type BuildInfo struct {
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

func (a *Application) versionHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{
		Name:        version.Name,
		Version:     version.Version,
		Description: version.Description,
		Build: BuildInfo{
			Commit:    version.Commit,
			Date:      version.Date,
			GoVersion: runtime.Version(),
			Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		},
		Strategies: balancer.NewFactory().GetAvailableStrategies(),
		CheckTypes: supportedCheckTypes,
	})
}
