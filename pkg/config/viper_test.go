package config

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("InitViper", func() {
	It("serves the package defaults when nothing else is set", func() {
		v, err := InitViper(GinkgoT().TempDir())
		Expect(err).ToNot(HaveOccurred())

		Expect(StaticFromViper(v)).To(Equal(NewDefaultStatic()))
		Expect(RuntimeFromViper(v)).To(Equal(NewDefaultRuntime()))
	})

	It("reads values from config.toml in the config dir", func() {
		dir := GinkgoT().TempDir()
		toml := `
[server]
listen = ":9090"

[inference]
model = "mistral:7b"

[artifacts]
retention = "30m"
`
		Expect(os.WriteFile(filepath.Join(dir, "config.toml"), []byte(toml), 0o644)).To(Succeed())

		v, err := InitViper(dir)
		Expect(err).ToNot(HaveOccurred())

		static := StaticFromViper(v)
		Expect(static.ListenAddr).To(Equal(":9090"))
		Expect(static.Retention).To(Equal(30 * time.Minute))
		// Untouched keys keep their defaults.
		Expect(static.ReapInterval).To(Equal(NewDefaultStatic().ReapInterval))

		runtime := RuntimeFromViper(v)
		Expect(runtime.Model).To(Equal("mistral:7b"))
		Expect(runtime.Endpoint).To(Equal(NewDefaultRuntime().Endpoint))
	})

	It("lets environment variables override file values", func() {
		GinkgoT().Setenv("PARLEY_INFERENCE_MODEL", "phi3:mini")
		GinkgoT().Setenv("PARLEY_SPEECH_VOICE", "es-ES-ElviraNeural")

		v, err := InitViper(GinkgoT().TempDir())
		Expect(err).ToNot(HaveOccurred())

		runtime := RuntimeFromViper(v)
		Expect(runtime.Model).To(Equal("phi3:mini"))
		Expect(runtime.Voice).To(Equal("es-ES-ElviraNeural"))
	})

	It("fails on an unparseable config file", func() {
		dir := GinkgoT().TempDir()
		Expect(os.WriteFile(filepath.Join(dir, "config.toml"), []byte("not [valid"), 0o644)).To(Succeed())

		_, err := InitViper(dir)
		Expect(err).To(HaveOccurred())
	})
})
