package scanning

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 30), G: uint8(y * 30), B: 100, A: 255})
		}
	}
	return img
}

var _ = Describe("prepareImage", func() {
	var (
		input  []byte
		output []byte
		err    error
	)

	JustBeforeEach(func() {
		output, err = prepareImage(input, detectContentType(input))
	})

	When("the photo is a JPEG", func() {
		BeforeEach(func() {
			var buf bytes.Buffer
			Expect(jpeg.Encode(&buf, testImage(), nil)).To(Succeed())
			input = buf.Bytes()
		})

		It("converts it to PNG", func() {
			Expect(err).NotTo(HaveOccurred())
			_, format, decodeErr := image.Decode(bytes.NewReader(output))
			Expect(decodeErr).NotTo(HaveOccurred())
			Expect(format).To(Equal("png"))
		})
	})

	When("the photo is already a PNG", func() {
		BeforeEach(func() {
			var buf bytes.Buffer
			Expect(png.Encode(&buf, testImage())).To(Succeed())
			input = buf.Bytes()
		})

		It("passes it through unchanged", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(output).To(Equal(input))
		})
	})

	When("the bytes are not an image", func() {
		BeforeEach(func() {
			input = []byte("definitely not an image")
		})

		It("returns an error", func() {
			Expect(err).To(HaveOccurred())
		})
	})
})

var _ = Describe("isHEICFormat", func() {
	It("detects the heic brand", func() {
		Expect(isHEICFormat([]byte("\x00\x00\x00\x18ftypheic\x00\x00"))).To(BeTrue())
	})

	It("detects the mif1 brand", func() {
		Expect(isHEICFormat([]byte("\x00\x00\x00\x18ftypmif1\x00\x00"))).To(BeTrue())
	})

	It("rejects short input", func() {
		Expect(isHEICFormat([]byte("ftyp"))).To(BeFalse())
	})

	It("rejects other containers", func() {
		Expect(isHEICFormat([]byte("\x00\x00\x00\x18ftypisom\x00\x00"))).To(BeFalse())
	})
})
