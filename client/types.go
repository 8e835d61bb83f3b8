package client

import (
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// RepositoryParams is the request body for creating a repository.
type RepositoryParams struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// RemoteParams is the request body for creating a remote. The optional
// numeric fields use OptionalInt so that unset values serialize as null
// instead of zero; the corresponding API fields are nullable integers, and
// null leaves the server-side default in place where zero would be rejected.
type RemoteParams struct {
	Name                string              `json:"name"`
	URL                 string              `json:"url"`
	Policy              string              `json:"policy,omitempty"`
	ProxyURL            string              `json:"proxy_url,omitempty"`
	ProxyUsername       string              `json:"proxy_username,omitempty"`
	ProxyPassword       string              `json:"proxy_password,omitempty"`
	CACert              string              `json:"ca_cert,omitempty"`
	ClientCert          string              `json:"client_cert,omitempty"`
	ClientKey           string              `json:"client_key,omitempty"`
	TLSValidation       *bool               `json:"tls_validation,omitempty"`
	DownloadConcurrency ldvalue.OptionalInt `json:"download_concurrency"`
	RateLimit           ldvalue.OptionalInt `json:"rate_limit"`
	TotalTimeout        ldvalue.OptionalInt `json:"total_timeout"`
}

// PublicationParams is the request body for creating a publication.
type PublicationParams struct {
	Repository        string `json:"repository,omitempty"`
	RepositoryVersion string `json:"repository_version,omitempty"`
}

// DistributionParams is the request body for creating a distribution.
type DistributionParams struct {
	Name        string `json:"name"`
	BasePath    string `json:"base_path"`
	Publication string `json:"publication,omitempty"`
}

// SyncParams is the request body for a repository sync action.
type SyncParams struct {
	Remote string `json:"remote"`
	Mirror bool   `json:"mirror,omitempty"`
}

// Package is an RPM content unit as returned by the packages collection.
type Package struct {
	Href         string `json:"pulp_href"`
	Name         string `json:"name"`
	Epoch        string `json:"epoch"`
	Version      string `json:"version"`
	Release      string `json:"release"`
	Arch         string `json:"arch"`
	LocationHref string `json:"location_href"`
	License      string `json:"license"`
	Summary      string `json:"summary"`
	ChecksumType string `json:"checksum_type"`
	Sha256       string `json:"sha256"`
}

// PackageList is the paginated packages response.
type PackageList struct {
	Count   int       `json:"count"`
	Results []Package `json:"results"`
}

// Remote is the typed shape of a remote resource.
type Remote struct {
	Href                string              `json:"pulp_href"`
	Name                string              `json:"name"`
	URL                 string              `json:"url"`
	Policy              string              `json:"policy"`
	DownloadConcurrency ldvalue.OptionalInt `json:"download_concurrency"`
	RateLimit           ldvalue.OptionalInt `json:"rate_limit"`
	TotalTimeout        ldvalue.OptionalInt `json:"total_timeout"`
}

// Repository is the typed shape of a repository resource, for the fields the
// suite needs beyond the generic Object.
type Repository struct {
	Href              string `json:"pulp_href"`
	Name              string `json:"name"`
	LatestVersionHref string `json:"latest_version_href"`
}

// Distribution is the typed shape of a distribution resource.
type Distribution struct {
	Href        string `json:"pulp_href"`
	Name        string `json:"name"`
	BasePath    string `json:"base_path"`
	BaseURL     string `json:"base_url"`
	Publication string `json:"publication"`
}

// Publication is the typed shape of a publication resource.
type Publication struct {
	Href              string `json:"pulp_href"`
	Repository        string `json:"repository"`
	RepositoryVersion string `json:"repository_version"`
}
