package scanning

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("NormalizeText", func() {
	It("converts CRLF line endings", func() {
		Expect(NormalizeText("a\r\nb\r\n")).To(Equal("a\nb"))
	})

	It("treats form feeds as page breaks", func() {
		Expect(NormalizeText("page one\fpage two")).To(Equal("page one\npage two"))
	})

	It("trims trailing whitespace but keeps indentation", func() {
		Expect(NormalizeText("  title   \n\t- item\t")).To(Equal("title\n\t- item"))
	})

	It("returns an empty string for whitespace-only input", func() {
		Expect(NormalizeText(" \n\t\r\n ")).To(BeEmpty())
	})

	It("keeps interior blank lines", func() {
		Expect(NormalizeText("a\n\nb")).To(Equal("a\n\nb"))
	})
})

var _ = Describe("cleanTranscript", func() {
	When("the model wraps the text in a fenced block", func() {
		It("removes the fences", func() {
			Expect(cleanTranscript("```text\nChapter 1\nIntro\n```")).To(Equal("Chapter 1\nIntro"))
		})
	})

	When("the text is plain", func() {
		It("only trims surrounding whitespace", func() {
			Expect(cleanTranscript("\n Chapter 1 \n")).To(Equal("Chapter 1"))
		})
	})
})
