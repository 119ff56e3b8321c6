package sonarr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/stacklok/tvmaze-sync/internal/config"
	"github.com/stacklok/tvmaze-sync/internal/filtering"
	"github.com/stacklok/tvmaze-sync/internal/httpclient"
	"github.com/stacklok/tvmaze-sync/internal/versions"
)

// languageProfilesRemovedIn is the first Sonarr major version without language profiles
const languageProfilesRemovedIn = 4

// ResolveParams checks the configured root folder, quality profile,
// language profile and tags against Sonarr and returns the forward params
// with every reference resolved to an id. Missing objects are reported
// together, wrapped in ErrInvalidParams.
func (c *Client) ResolveParams(ctx context.Context, cfg *config.SonarrConfig) (filtering.ForwardParams, error) {
	params := filtering.ForwardParams{
		Monitor:      cfg.Monitor,
		SearchOnAdd:  cfg.SearchOnAdd,
		SeasonFolder: cfg.SeasonFolder,
		Tags:         []int{},
	}

	status, err := c.SystemStatus(ctx)
	if err != nil {
		return params, fmt.Errorf("cannot connect to Sonarr at %s: %w", c.baseURL.Redacted(), err)
	}
	c.version = status.Version
	slog.Info("Connected to Sonarr", "version", status.Version)

	var errs []error

	folder, err := c.resolveRootFolder(ctx, cfg.RootFolder)
	if err != nil {
		errs = append(errs, err)
	}
	params.RootFolder = folder

	profileID, err := c.resolveNamed(ctx, "/qualityprofile", "quality profile", cfg.QualityProfile)
	if err != nil {
		errs = append(errs, err)
	}
	params.QualityProfileID = profileID

	languageID, err := c.resolveLanguageProfile(ctx, cfg.LanguageProfile)
	if err != nil {
		errs = append(errs, err)
	}
	params.LanguageProfileID = languageID

	tags, err := c.resolveTags(ctx, cfg.Tags)
	if err != nil {
		errs = append(errs, err)
	}
	params.Tags = tags

	if err := errors.Join(errs...); err != nil {
		return params, err
	}

	slog.Info("Sonarr configuration validated",
		"root_folder", params.RootFolder,
		"quality_profile_id", params.QualityProfileID,
		"language_profile_id", params.LanguageProfileID,
		"tags", params.Tags)
	return params, nil
}

func (c *Client) resolveRootFolder(ctx context.Context, ref config.IDOrName) (string, error) {
	var folders []rootFolder
	if err := c.getJSON(ctx, "/rootfolder", &folders); err != nil {
		return "", fmt.Errorf("failed to get root folders from Sonarr: %w", err)
	}
	if len(folders) == 0 {
		return "", fmt.Errorf("%w: no root folders found in Sonarr", ErrInvalidParams)
	}

	available := make([]string, 0, len(folders))
	for _, f := range folders {
		if (ref.Name == "" && f.ID == ref.ID) || (ref.Name != "" && f.Path == ref.Name) {
			return f.Path, nil
		}
		available = append(available, fmt.Sprintf("%s (%d)", f.Path, f.ID))
	}
	return "", fmt.Errorf("%w: root folder %q not found, available: %s",
		ErrInvalidParams, ref.String(), strings.Join(available, ", "))
}

// resolveNamed resolves a reference to an id from a list of {id, name} objects.
// Names match case-insensitively.
func (c *Client) resolveNamed(ctx context.Context, path, kind string, ref config.IDOrName) (int, error) {
	var items []namedItem
	if err := c.getJSON(ctx, path, &items); err != nil {
		return 0, fmt.Errorf("failed to get %ss from Sonarr: %w", kind, err)
	}

	available := make([]string, 0, len(items))
	for _, item := range items {
		if matches(ref, item.ID, item.Name) {
			return item.ID, nil
		}
		available = append(available, fmt.Sprintf("%s (%d)", item.Name, item.ID))
	}
	return 0, fmt.Errorf("%w: %s %q not found, available: %s",
		ErrInvalidParams, kind, ref.String(), strings.Join(available, ", "))
}

// resolveLanguageProfile returns nil on Sonarr v4, which has no language profiles
func (c *Client) resolveLanguageProfile(ctx context.Context, ref config.IDOrName) (*int, error) {
	if versions.AtLeastMajor(c.version, languageProfilesRemovedIn) {
		slog.Info("Sonarr v4 or later detected, language profiles not required", "version", c.version)
		return nil, nil
	}
	if ref.IsZero() {
		return nil, fmt.Errorf("%w: sonarr.language_profile is required for Sonarr v3", ErrInvalidParams)
	}

	id, err := c.resolveNamed(ctx, "/languageprofile", "language profile", ref)
	if httpclient.IsNotFound(err) {
		slog.Info("Language profile endpoint not available, assuming Sonarr v4 or later")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func (c *Client) resolveTags(ctx context.Context, refs []config.IDOrName) ([]int, error) {
	ids := make([]int, 0, len(refs))
	if len(refs) == 0 {
		return ids, nil
	}

	var tags []tag
	if err := c.getJSON(ctx, "/tag", &tags); err != nil {
		return ids, fmt.Errorf("failed to get tags from Sonarr: %w", err)
	}

	var missing []string
	for _, ref := range refs {
		found := false
		for _, t := range tags {
			if matches(ref, t.ID, t.Label) {
				ids = append(ids, t.ID)
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, ref.String())
		}
	}
	if len(missing) > 0 {
		available := make([]string, 0, len(tags))
		for _, t := range tags {
			available = append(available, t.Label+" ("+strconv.Itoa(t.ID)+")")
		}
		return ids, fmt.Errorf("%w: tags %s not found, available: %s",
			ErrInvalidParams, strings.Join(missing, ", "), strings.Join(available, ", "))
	}
	return ids, nil
}

func matches(ref config.IDOrName, id int, name string) bool {
	if ref.Name != "" {
		return strings.EqualFold(ref.Name, name)
	}
	return ref.ID == id
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	data, err := c.get(ctx, path, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}
