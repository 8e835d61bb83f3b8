package client

import (
	"context"
	"net/url"
)

// UploadPackage uploads an RPM file to the packages collection. Content
// creation is task-based; the returned object carries the task href.
func (c *PulpClient) UploadPackage(ctx context.Context, filename string, contents []byte) (*Object, error) {
	return c.UploadFile(ctx, PackagesPath, filename, contents, map[string]string{
		"relative_path": filename,
	})
}

// ListPackages lists RPM content units, optionally filtered (for instance by
// repository_version to search the content of one repository).
func (c *PulpClient) ListPackages(ctx context.Context, params url.Values) (*PackageList, error) {
	var list PackageList
	if err := c.GetWithParams(ctx, PackagesPath, params, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// RepositoryPackages lists the content units of a repository's latest version.
func (c *PulpClient) RepositoryPackages(ctx context.Context, repoHref string) (*PackageList, error) {
	var repo Repository
	if err := c.Get(ctx, repoHref, &repo); err != nil {
		return nil, err
	}
	params := url.Values{}
	params.Set("repository_version", repo.LatestVersionHref)
	return c.ListPackages(ctx, params)
}

// ModifyRepository adds and/or removes content units in a repository,
// producing a new repository version. Returns the task object.
func (c *PulpClient) ModifyRepository(ctx context.Context, repoHref string, add, remove []string) (*Object, error) {
	body := map[string]interface{}{}
	if len(add) > 0 {
		body["add_content_units"] = add
	}
	if len(remove) > 0 {
		body["remove_content_units"] = remove
	}
	var obj Object
	if err := c.Post(ctx, repoHref+"modify/", body, &obj); err != nil {
		return nil, err
	}
	return &obj, nil
}

// SyncRepository starts a sync of the repository from the given remote.
// Returns the task object.
func (c *PulpClient) SyncRepository(ctx context.Context, repoHref string, params SyncParams) (*Object, error) {
	var obj Object
	if err := c.Post(ctx, repoHref+"sync/", params, &obj); err != nil {
		return nil, err
	}
	return &obj, nil
}

// CleanOrphans starts the orphan cleanup task that removes content no longer
// held by any repository version.
func (c *PulpClient) CleanOrphans(ctx context.Context) (*Object, error) {
	var obj Object
	if err := c.Post(ctx, OrphansPath, map[string]interface{}{}, &obj); err != nil {
		return nil, err
	}
	return &obj, nil
}
