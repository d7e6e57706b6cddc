package synthesis

import (
	"context"
	"errors"
	"log/slog"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/study-scan/internal/scanning"
)

// mockRemote is a mock implementation of Remote
type mockRemote struct {
	body  string
	err   error
	block bool
	panic bool
	calls int
	texts []string
}

func (m *mockRemote) Complete(ctx context.Context, text string) (string, error) {
	m.calls++
	m.texts = append(m.texts, text)
	if m.panic {
		panic("boom")
	}
	if m.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if m.err != nil {
		return "", m.err
	}
	return m.body, nil
}

var _ = Describe("Generator", func() {
	var (
		remote    *mockRemote
		generator *Generator
		text      scanning.ExtractedText
		result    Synthesis
		err       error
	)

	BeforeEach(func() {
		remote = &mockRemote{body: "Hello synthesis"}
		generator = NewGeneratorWithDeps(remote, time.Second, slog.Default())
		text = scanning.ExtractedText{Raw: "Chapter 1\nLine A\nLine B\nLine C\nLine D"}
	})

	JustBeforeEach(func() {
		result, err = generator.Generate(context.Background(), text)
	})

	When("the remote call succeeds", func() {
		It("returns the remote completion", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(Synthesis{Body: "Hello synthesis", Origin: OriginRemote}))
		})

		It("sends the raw text", func() {
			Expect(remote.texts).To(Equal([]string{text.Raw}))
		})
	})

	When("the remote call fails", func() {
		BeforeEach(func() {
			remote.err = errors.New("connection refused")
		})

		It("returns the fallback synthesis", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Origin).To(Equal(OriginFallback))
			Expect(result.Body).To(Equal(Fallback(text.Raw)))
		})

		It("titles the synthesis with the first line", func() {
			Expect(result.Body).To(HavePrefix("📚 SYNTHESIS: Chapter 1\n"))
		})

		It("lists three points", func() {
			Expect(section(result.Body, "🎯 Main points identified:")).To(Equal([]string{
				"• Line A",
				"• Line B",
				"• Line C",
			}))
		})
	})

	When("the remote call returns a blank completion", func() {
		BeforeEach(func() {
			remote.body = " \n"
		})

		It("returns the fallback synthesis", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Origin).To(Equal(OriginFallback))
		})
	})

	When("the remote call hangs", func() {
		BeforeEach(func() {
			remote.block = true
			generator = NewGeneratorWithDeps(remote, 20*time.Millisecond, nil)
		})

		It("times out and returns the fallback synthesis", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Origin).To(Equal(OriginFallback))
		})
	})

	When("the remote panics", func() {
		BeforeEach(func() {
			remote.panic = true
		})

		It("still returns the fallback synthesis", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Origin).To(Equal(OriginFallback))
		})
	})

	When("no remote is configured", func() {
		BeforeEach(func() {
			generator = NewGenerator(nil)
		})

		It("returns the fallback synthesis", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Origin).To(Equal(OriginFallback))
		})
	})

	When("the text is empty", func() {
		BeforeEach(func() {
			text = scanning.ExtractedText{Raw: ""}
		})

		It("reports ErrEmptyText", func() {
			Expect(err).To(MatchError(ErrEmptyText))
		})

		It("never calls the remote", func() {
			Expect(remote.calls).To(BeZero())
		})
	})

	When("the text is only whitespace", func() {
		BeforeEach(func() {
			remote.err = ErrRemoteFailure
			text = scanning.ExtractedText{Raw: " \n\t "}
		})

		It("returns the fallback synthesis with the generic title", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Origin).To(Equal(OriginFallback))
			Expect(result.Body).To(HavePrefix("📚 SYNTHESIS: Analyzed document\n"))
		})
	})

	It("always produces a synthesis for non-empty text", func() {
		failing := NewGeneratorWithDeps(&mockRemote{err: ErrRemoteFailure}, time.Second, nil)
		inputs := []string{"x", " ", "\n\t\n", "\n\ny", "a\nb\nc\nd\ne\nf", "😀 emoji line", "   title   "}
		for _, in := range inputs {
			s, genErr := failing.Generate(context.Background(), scanning.ExtractedText{Raw: in})
			Expect(genErr).NotTo(HaveOccurred())
			Expect(s.Body).NotTo(BeEmpty())
		}
	})
})
