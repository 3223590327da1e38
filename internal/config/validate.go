package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePreferences(); err != nil {
		return err
	}
	if err := c.validateValidation(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateThumbnails(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePreferences() error {
	switch c.Preferences.ImageLibrary {
	case "imaging", "vips":
	default:
		return fmt.Errorf("preferences.image_library must be %q or %q, got %q", "imaging", "vips", c.Preferences.ImageLibrary)
	}
	switch c.Preferences.ThumbnailGeneration {
	case "server", "client", "smart":
	default:
		return fmt.Errorf("preferences.thumbnail_generation must be server, client, or smart, got %q", c.Preferences.ThumbnailGeneration)
	}
	for format, quality := range c.Preferences.Quality {
		if quality < 1 || quality > 100 {
			return fmt.Errorf("preferences.quality[%s] must be between 1 and 100", format)
		}
	}
	return nil
}

func (c *Config) validateValidation() error {
	if c.Validation.MaxFileSizeMiB < 0 {
		return errors.New("validation.max_file_size_mib must not be negative")
	}
	for _, mime := range c.Validation.AllowedMimeTypes {
		if !strings.Contains(mime, "/") {
			return fmt.Errorf("validation.allowed_mime_types entry %q is not a mime type", mime)
		}
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.TranscodeConcurrency < 1 {
		return errors.New("workflow.transcode_concurrency must be at least 1")
	}
	return nil
}

func (c *Config) validateThumbnails() error {
	seen := make(map[string]struct{}, len(c.Thumbnails.Sizes))
	for _, size := range c.Thumbnails.Sizes {
		if size.Name == "" {
			return errors.New("thumbnails.sizes entries require a name")
		}
		if size.Width <= 0 && size.Height <= 0 {
			return fmt.Errorf("thumbnails.sizes[%s] requires a positive width or height", size.Name)
		}
		if _, dup := seen[size.Name]; dup {
			return fmt.Errorf("thumbnails.sizes[%s] is defined twice", size.Name)
		}
		seen[size.Name] = struct{}{}
	}
	return nil
}
