package scanning

import (
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("LocalStorage", func() {
	var (
		tmpDir  string
		storage Storage
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		var err error
		storage, err = NewLocalStorage(tmpDir)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Save", func() {
		var (
			name string
			uri  string
			err  error
		)

		BeforeEach(func() {
			name = "notes.jpg"
		})

		JustBeforeEach(func() {
			uri, err = storage.Save(name, []byte("test file content"))
		})

		When("saving succeeds", func() {
			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should return the handle", func() {
				Expect(uri).To(Equal("notes.jpg"))
			})

			It("should save the file to disk", func() {
				Expect(filepath.Join(tmpDir, "notes.jpg")).To(BeAnExistingFile())
			})
		})

		When("the name tries to escape the storage directory", func() {
			BeforeEach(func() {
				name = "../../escape.jpg"
			})

			It("keeps the file inside the storage directory", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(uri).To(Equal("escape.jpg"))
				Expect(filepath.Join(tmpDir, "escape.jpg")).To(BeAnExistingFile())
			})
		})

		When("the name is empty", func() {
			BeforeEach(func() {
				name = ""
			})

			It("returns an error", func() {
				Expect(err).To(HaveOccurred())
			})
		})
	})

	Describe("Load", func() {
		var (
			uri  string
			data []byte
			err  error
		)

		JustBeforeEach(func() {
			data, err = storage.Load(uri)
		})

		When("file exists", func() {
			BeforeEach(func() {
				var saveErr error
				uri, saveErr = storage.Save("notes.jpg", []byte("test file content"))
				Expect(saveErr).NotTo(HaveOccurred())
			})

			It("should return the file data", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(string(data)).To(Equal("test file content"))
			})
		})

		When("file does not exist", func() {
			BeforeEach(func() {
				uri = "nonexistent.jpg"
			})

			It("returns an error", func() {
				Expect(err).To(HaveOccurred())
			})
		})
	})

	Describe("Delete", func() {
		var (
			uri string
			err error
		)

		JustBeforeEach(func() {
			err = storage.Delete(uri)
		})

		When("file exists", func() {
			BeforeEach(func() {
				var saveErr error
				uri, saveErr = storage.Save("notes.jpg", []byte("x"))
				Expect(saveErr).NotTo(HaveOccurred())
			})

			It("should remove the file", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(filepath.Join(tmpDir, "notes.jpg")).NotTo(BeAnExistingFile())
			})
		})

		When("file does not exist", func() {
			BeforeEach(func() {
				uri = "nonexistent.jpg"
			})

			It("returns an error", func() {
				Expect(err).To(HaveOccurred())
			})
		})
	})
})

var _ = Describe("SanitizeFilename", func() {
	It("drops special characters", func() {
		Expect(SanitizeFilename("cours (1)!.pdf")).To(Equal("cours 1.pdf"))
	})

	It("collapses whitespace", func() {
		Expect(SanitizeFilename("my   notes.png")).To(Equal("my notes.png"))
	})

	It("truncates long names", func() {
		long := "IMG_20240115_101010_1234567890_abcdefghijklmnopqrstuvwxyz"
		Expect(SanitizeFilename(long + ".jpg")).To(Equal(long[:50] + ".jpg"))
	})

	It("falls back to a default base", func() {
		Expect(SanitizeFilename("###.heic")).To(Equal("document.heic"))
	})

	It("drops directories", func() {
		Expect(SanitizeFilename("../../etc/passwd")).To(Equal("passwd"))
	})
})
