package artifacts_test

import (
	"encoding/base64"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/redialhq/redial/pkg/artifacts"
)

var _ = Describe("Store", func() {
	var (
		root  string
		store *artifacts.Store
	)

	BeforeEach(func() {
		root = GinkgoT().TempDir()

		var err error
		store, err = artifacts.NewStore(root)
		Expect(err).NotTo(HaveOccurred())
	})

	It("writes transcriptions as indented JSON in a per-conversation dir", func() {
		path, err := store.SaveTranscription("conv_123", map[string]any{"status": "done"})
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal(filepath.Join(root, "conv_123", "conv_123_transcription.json")))

		data, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring(`"status": "done"`))
	})

	It("decodes base64 audio into an mp3 file", func() {
		audio := []byte{0xff, 0xfb, 0x90, 0x00}
		path, err := store.SaveAudio("conv_123", base64.StdEncoding.EncodeToString(audio))
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(HaveSuffix("conv_123_audio.mp3"))

		data, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(data).To(Equal(audio))
	})

	It("rejects audio that is not valid base64", func() {
		_, err := store.SaveAudio("conv_123", "not base64!!")
		Expect(err).To(HaveOccurred())
	})

	It("writes failure payloads", func() {
		path, err := store.SaveFailure("conv_456", map[string]any{"reason": "no answer"})
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(HaveSuffix("conv_456_failure.json"))
	})

	It("writes processing-error records", func() {
		path, err := store.SaveError("conv_789", artifacts.ProcessingError{
			ConversationID: "conv_789",
			CompletionType: "post_call_transcription",
			Error:          "recording call: connection refused",
			OccurredAt:     "2026-02-01T12:00:00Z",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal(filepath.Join(root, "conv_789", "conv_789_error.json")))

		data, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring("connection refused"))
		Expect(string(data)).To(ContainSubstring(`"completion_type": "post_call_transcription"`))
	})

	It("keeps hostile conversation ids inside the payload root", func() {
		path, err := store.SaveRaw("../../etc/passwd", []byte("{}"))
		Expect(err).NotTo(HaveOccurred())

		rel, err := filepath.Rel(root, path)
		Expect(err).NotTo(HaveOccurred())
		Expect(rel).NotTo(HavePrefix(".."))
	})
})
