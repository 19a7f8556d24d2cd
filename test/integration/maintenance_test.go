//go:build integration

package integration

import (
	"context"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/eliteGoblin/brewkeeper/internal/domain"
	"github.com/eliteGoblin/brewkeeper/internal/infra"
	"github.com/eliteGoblin/brewkeeper/internal/usecase"
	"github.com/eliteGoblin/brewkeeper/test/fixtures"
)

var _ = Describe("Maintenance pass", func() {
	var (
		tmpDir     string
		fakeBrew   *fixtures.FakeBrew
		maintainer *usecase.Maintainer
	)

	newMaintainer := func(upgradeTimeout time.Duration) *usecase.Maintainer {
		executor := infra.NewBrewExecutorWithDeps(fakeBrew.Path(), infra.NewProcessManager(), zap.NewNop())
		return usecase.NewMaintainer(
			executor,
			infra.NewOutdatedDecoder(),
			usecase.Config{UpgradeTimeout: upgradeTimeout},
			zap.NewNop(),
		)
	}

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "brewkeeper-integration-*")
		Expect(err).NotTo(HaveOccurred())

		fakeBrew = fixtures.NewFakeBrew(tmpDir)
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	Context("when nothing is outdated", func() {
		It("runs all four phases and reports no failures", func() {
			Expect(fakeBrew.Create(`{"formulae":[],"casks":[]}`)).To(Succeed())
			maintainer = newMaintainer(5 * time.Second)

			report, err := maintainer.Run(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(report.FailedUpgrades).To(BeEmpty())
			Expect(report.Outdated.Empty()).To(BeTrue())

			Expect(fakeBrew.Ran("update")).To(BeTrue())
			Expect(fakeBrew.Ran("outdated")).To(BeTrue())
			Expect(fakeBrew.Ran("cleanup")).To(BeTrue())
		})
	})

	Context("when a package upgrades cleanly", func() {
		It("invokes one upgrade and reports no failures", func() {
			Expect(fakeBrew.Create(`{"formulae":[{"name":"jq","installed_versions":["1.6"],"current_version":"1.7","pinned":false}],"casks":[]}`)).To(Succeed())
			maintainer = newMaintainer(5 * time.Second)

			report, err := maintainer.Run(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(report.FailedUpgrades).To(BeEmpty())
			Expect(fakeBrew.Ran("upgrade-jq")).To(BeTrue())
		})
	})

	Context("when an upgrade prompts for input", func() {
		It("records the package as failed and still cleans up", func() {
			Expect(fakeBrew.Create(`{"formulae":[{"name":"prompting-bar","current_version":"2.0"},{"name":"jq","current_version":"1.7"}],"casks":[]}`)).To(Succeed())
			maintainer = newMaintainer(20 * time.Second)

			start := time.Now()
			report, err := maintainer.Run(context.Background())
			Expect(err).NotTo(HaveOccurred())

			Expect(report.FailedUpgrades).To(HaveLen(1))
			Expect(report.FailedUpgrades[0].Name).To(Equal("prompting-bar"))

			// The prompt aborts the upgrade well before the timeout.
			Expect(time.Since(start)).To(BeNumerically("<", 15*time.Second))

			Expect(fakeBrew.Ran("upgrade-jq")).To(BeTrue())
			Expect(fakeBrew.Ran("cleanup")).To(BeTrue())
		})
	})

	Context("when an upgrade hangs silently", func() {
		It("times the package out and moves on", func() {
			Expect(fakeBrew.Create(`{"formulae":[{"name":"hanging-baz","current_version":"3.0"}],"casks":[{"name":"firefox","current_version":"120.0"}]}`)).To(Succeed())
			maintainer = newMaintainer(500 * time.Millisecond)

			report, err := maintainer.Run(context.Background())
			Expect(err).NotTo(HaveOccurred())

			Expect(report.FailedUpgrades).To(HaveLen(1))
			Expect(report.FailedUpgrades[0].Name).To(Equal("hanging-baz"))

			Expect(fakeBrew.Ran("upgrade-firefox")).To(BeTrue())
			Expect(fakeBrew.Ran("cleanup")).To(BeTrue())
		})
	})

	Context("when an upgrade exits non-zero", func() {
		It("tolerates the failure as execution-failed", func() {
			Expect(fakeBrew.Create(`{"formulae":[{"name":"broken-qux","current_version":"1.1"}],"casks":[]}`)).To(Succeed())
			maintainer = newMaintainer(5 * time.Second)

			report, err := maintainer.Run(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(report.FailedUpgrades).To(HaveLen(1))
			Expect(report.FailedUpgrades[0].Name).To(Equal("broken-qux"))
		})
	})

	Context("when brew itself is missing", func() {
		It("aborts the run in phase 1", func() {
			// No Create call: the script does not exist.
			maintainer = newMaintainer(5 * time.Second)

			_, err := maintainer.Run(context.Background())
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("failed to update reference repositories"))
			Expect(domain.IsExecutionFailed(err)).To(BeTrue())
		})
	})
})
