package pages

import (
	"context"

	"github.com/tomyan/pagekit/internal/browser"
	"github.com/tomyan/pagekit/internal/page"
)

// ExampleURL is where ExamplePage lives.
const ExampleURL = "https://example.com"

// ExamplePage models the example.com landing page.
type ExamplePage struct {
	*page.Base
	sel exampleSelectors
}

type exampleSelectors struct {
	heading       string
	paragraph     string
	learnMoreLink string
}

// NewExamplePage returns the page object for example.com.
func NewExamplePage(d browser.Driver, opts ...page.Option) *ExamplePage {
	return &ExamplePage{
		Base: page.New(d, ExampleURL, opts...),
		sel: exampleSelectors{
			heading:       "h1",
			paragraph:     "p",
			learnMoreLink: "a",
		},
	}
}

// GetHeading returns the page heading.
func (p *ExamplePage) GetHeading() *page.Locator {
	return p.GetElement(p.sel.heading)
}

// GetParagraph returns the first paragraph.
func (p *ExamplePage) GetParagraph() *page.Locator {
	return p.GetElement(p.sel.paragraph).First()
}

// GetAllParagraphs returns every paragraph.
func (p *ExamplePage) GetAllParagraphs() *page.Locator {
	return p.GetElement(p.sel.paragraph)
}

// GetLearnMoreLink returns the link labelled "Learn more".
func (p *ExamplePage) GetLearnMoreLink() *page.Locator {
	return p.GetByText("Learn more", p.sel.learnMoreLink)
}

// ClickLearnMoreLink follows the "Learn more" link.
func (p *ExamplePage) ClickLearnMoreLink(ctx context.Context) (*ExamplePage, error) {
	if err := p.GetLearnMoreLink().Click(ctx); err != nil {
		return p, err
	}
	return p, nil
}

// VerifyPageLoaded checks the heading is visible and names the domain.
func (p *ExamplePage) VerifyPageLoaded(ctx context.Context) (*ExamplePage, error) {
	if err := p.GetHeading().ShouldBeVisible(ctx); err != nil {
		return p, err
	}
	if err := p.GetHeading().ShouldContainText(ctx, "Example Domain"); err != nil {
		return p, err
	}
	return p, nil
}

// PerformCompleteFlow visits the page, verifies it and follows the link.
func (p *ExamplePage) PerformCompleteFlow(ctx context.Context) (*ExamplePage, error) {
	if err := p.Visit(ctx); err != nil {
		return p, err
	}
	if _, err := p.VerifyPageLoaded(ctx); err != nil {
		return p, err
	}
	return p.ClickLearnMoreLink(ctx)
}
