//go:build e2e

package examples

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tomyan/pagekit/internal/commands"
	"github.com/tomyan/pagekit/internal/fixture"
	"github.com/tomyan/pagekit/internal/pages"
	"github.com/tomyan/pagekit/internal/suite"
)

func TestExampleSuite(t *testing.T) {
	suite.Describe(t, rt, "Example Test Suite", func(s *suite.Suite) {
		var examplePage *pages.ExamplePage

		s.Before(func(t *suite.T) {
			examplePage = pages.NewExamplePage(t.Driver(), t.PageOptions()...)
		})

		s.BeforeEach(func(t *suite.T) {
			require.NoError(t, examplePage.Visit(t.Context()))
		})

		s.It("should load the page successfully", func(t *suite.T) {
			ctx := t.Context()
			require.NoError(t, examplePage.ShouldHaveTitleContaining(ctx, "Example Domain"))
			require.NoError(t, examplePage.GetHeading().ShouldBeVisible(ctx))
			require.NoError(t, examplePage.GetHeading().ShouldContainText(ctx, "Example Domain"))
		})

		s.It("should interact with page elements", func(t *suite.T) {
			ctx := t.Context()
			require.NoError(t, examplePage.GetHeading().ShouldBeVisible(ctx))
			require.NoError(t, examplePage.GetParagraph().ShouldContainText(ctx, "domain"))
			require.NoError(t, examplePage.GetLearnMoreLink().ShouldHaveNonEmptyAttribute(ctx, "href"))
		})

		s.It("should use fixture data", func(t *suite.T) {
			var data fixture.Example
			require.NoError(t, t.Fixture("example", &data))
			t.Logger().Info("fixture", zap.String("name", data.Name), zap.String("email", data.Email))

			assert.NotEmpty(t, data.Name)
			assert.Contains(t, data.Email, "@")
		})

		s.It("should demonstrate custom command", func(t *suite.T) {
			t.Logger().Info("visit the page using custom command")
			require.NoError(t, t.Cmd(commands.CustomVisitName, "https://example.com"))
			require.NoError(t, examplePage.ShouldHaveTitleContaining(t.Context(), "Example Domain"))
		})

		s.It("should verify multiple elements", func(t *suite.T) {
			ctx := t.Context()
			heading := examplePage.GetHeading()
			require.NoError(t, heading.ShouldBeVisible(ctx))
			require.NoError(t, heading.ShouldContainText(ctx, "Example"))
			require.NoError(t, examplePage.GetAllParagraphs().ShouldHaveLengthGreaterThan(ctx, 0))
		})

		s.It("should complete the whole flow", func(t *suite.T) {
			_, err := examplePage.PerformCompleteFlow(t.Context())
			require.NoError(t, err)
			require.NoError(t, examplePage.ShouldHaveURLPath(t.Context(), "iana.org"))
		})
	})
}
