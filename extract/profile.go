package extract

import (
	"fmt"

	"github.com/use-agent/cataloger/config"
)

// Profile bundles everything site-specific the extractor needs.
type Profile struct {
	Container Matcher
	Link      Matcher
	Price     Matcher

	// HrefMarker must appear in a product link's href.
	HrefMarker string

	// CategoryLabel is stripped from the front of titles.
	CategoryLabel string

	// Currency ends the price text.
	Currency string
}

// Built-in patterns for the citilink catalog. Only the role-bearing part of
// each generated class name is pinned.
const (
	DefaultContainerTag     = "div"
	DefaultContainerPattern = `app-catalog-\S*StyledGridItem--StyledGridItem-GridItem--WrappedGridItem`
	DefaultLinkTag          = "a"
	DefaultLinkPattern      = `app-catalog-\S*Anchor--Anchor-Anchor--StyledAnchor`
	DefaultPriceTag         = "div"
	DefaultPricePattern     = `app-catalog-\S*StyledOrderInfoWrapper`
	DefaultHrefMarker       = "product"
	DefaultCategoryLabel    = "Процессор"
	DefaultCurrency         = "₽"
)

// DefaultProfile returns the profile for the default catalog.
func DefaultProfile() Profile {
	return Profile{
		Container:     MustClassPattern(DefaultContainerTag, DefaultContainerPattern),
		Link:          MustClassPattern(DefaultLinkTag, DefaultLinkPattern),
		Price:         MustClassPattern(DefaultPriceTag, DefaultPricePattern),
		HrefMarker:    DefaultHrefMarker,
		CategoryLabel: DefaultCategoryLabel,
		Currency:      DefaultCurrency,
	}
}

// ProfileFromConfig builds a profile from the defaults, replacing every
// field that cfg sets.
func ProfileFromConfig(cfg config.ExtractConfig) (Profile, error) {
	p := DefaultProfile()

	var err error
	if p.Container, err = override(p.Container, cfg.ContainerTag, DefaultContainerTag, cfg.ContainerPattern, DefaultContainerPattern); err != nil {
		return Profile{}, fmt.Errorf("container: %w", err)
	}
	if p.Link, err = override(p.Link, cfg.LinkTag, DefaultLinkTag, cfg.LinkPattern, DefaultLinkPattern); err != nil {
		return Profile{}, fmt.Errorf("link: %w", err)
	}
	if p.Price, err = override(p.Price, cfg.PriceTag, DefaultPriceTag, cfg.PricePattern, DefaultPricePattern); err != nil {
		return Profile{}, fmt.Errorf("price: %w", err)
	}

	if cfg.HrefMarker != "" {
		p.HrefMarker = cfg.HrefMarker
	}
	if cfg.CategoryLabel != "" {
		p.CategoryLabel = cfg.CategoryLabel
	}
	if cfg.Currency != "" {
		p.Currency = cfg.Currency
	}
	return p, nil
}

func override(current Matcher, tag, defTag, pattern, defPattern string) (Matcher, error) {
	if tag == "" && pattern == "" {
		return current, nil
	}
	if tag == "" {
		tag = defTag
	}
	if pattern == "" {
		pattern = defPattern
	}
	return NewClassPattern(tag, pattern)
}
