// Copyright (c) 2023-2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package materialize

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Run", func() {
	var baseDir string

	BeforeEach(func() {
		baseDir = filepath.Join(GinkgoT().TempDir(), "out")
	})

	readFile := func(p string) string {
		c, err := os.ReadFile(filepath.Join(baseDir, filepath.FromSlash(p)))
		Expect(err).ToNot(HaveOccurred())
		return string(c)
	}

	It("Should require a base root", func() {
		summary, err := Run("", []Artifact{{Path: "a.txt"}})
		Expect(err).To(MatchError("target is required"))
		Expect(summary).To(BeNil())
	})

	It("Should materialize all entries in order", func() {
		summary, err := Run(baseDir, []Artifact{
			{Path: "pkg/a.txt", Content: "hello"},
			{Path: "pkg/sub/b.txt", Content: "world\n\n\n"},
		})
		Expect(err).ToNot(HaveOccurred())

		Expect(readFile("pkg/a.txt")).To(Equal("hello\n"))
		Expect(readFile("pkg/sub/b.txt")).To(Equal("world\n"))

		Expect(summary.State).To(Equal(StateCompleted))
		Expect(summary.Count()).To(Equal(2))
		Expect(summary.Failure).To(BeNil())
		Expect(summary.Root).To(Equal(baseDir))
		Expect(summary.ID).ToNot(BeEmpty())
		Expect(summary.Locations()).To(Equal([]string{
			filepath.Join(baseDir, "pkg", "a.txt"),
			filepath.Join(baseDir, "pkg", "sub", "b.txt"),
		}))
	})

	It("Should complete an empty catalog", func() {
		summary, err := Run(baseDir, nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(summary.State).To(Equal(StateCompleted))
		Expect(summary.Count()).To(Equal(0))
	})

	It("Should produce identical files when run twice", func() {
		entries := []Artifact{
			{Path: "a.txt", Content: "a\n\n"},
			{Path: "x/y/z.txt", Content: "  z  "},
		}

		_, err := Run(baseDir, entries)
		Expect(err).ToNot(HaveOccurred())
		first := []string{readFile("a.txt"), readFile("x/y/z.txt")}

		summary, err := Run(baseDir, entries)
		Expect(err).ToNot(HaveOccurred())
		Expect(summary.Count()).To(Equal(2))
		Expect([]string{readFile("a.txt"), readFile("x/y/z.txt")}).To(Equal(first))
	})

	It("Should let later entries win when paths resolve to the same location", func() {
		summary, err := Run(baseDir, []Artifact{
			{Path: "pkg/a.txt", Content: "first"},
			{Path: "pkg/./sub/../a.txt", Content: "second"},
		})
		Expect(err).ToNot(HaveOccurred())
		Expect(summary.Count()).To(Equal(2))
		Expect(readFile("pkg/a.txt")).To(Equal("second\n"))
	})

	It("Should stop at the first failing entry", func() {
		Expect(os.MkdirAll(baseDir, 0700)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(baseDir, "blocker"), []byte("x"), 0600)).To(Succeed())

		summary, runErr := Run(baseDir, []Artifact{
			{Path: "a.txt", Content: "A"},
			{Path: "blocker/b.txt", Content: "B"},
			{Path: "c.txt", Content: "C"},
		})
		Expect(runErr).To(HaveOccurred())

		Expect(readFile("a.txt")).To(Equal("A\n"))
		_, err := os.Stat(filepath.Join(baseDir, "blocker", "b.txt"))
		Expect(err).To(HaveOccurred())
		_, err = os.Stat(filepath.Join(baseDir, "c.txt"))
		Expect(os.IsNotExist(err)).To(BeTrue())

		Expect(summary.State).To(Equal(StateFailed))
		Expect(summary.Count()).To(Equal(1))
		Expect(summary.Failure).ToNot(BeNil())
		Expect(summary.Failure.Index).To(Equal(1))
		Expect(summary.Failure.Path).To(Equal("blocker/b.txt"))

		var failure *EntryFailure
		Expect(errors.As(runErr, &failure)).To(BeTrue())
		Expect(failure).To(Equal(summary.Failure))
		Expect(errors.Is(runErr, ErrIO)).To(BeTrue())
		Expect(runErr.Error()).To(ContainSubstring("entry 2 (blocker/b.txt)"))
	})

	It("Should report path traversal failures", func() {
		summary, err := Run(baseDir, []Artifact{
			{Path: "ok.txt", Content: "ok"},
			{Path: "../escape.txt", Content: "bad"},
		})
		Expect(err).To(MatchError(ErrPathTraversal))

		var pte *PathTraversalError
		Expect(errors.As(err, &pte)).To(BeTrue())
		Expect(summary.Count()).To(Equal(1))
		Expect(summary.Failure.Path).To(Equal("../escape.txt"))
		Expect(filepath.Join(filepath.Dir(baseDir), "escape.txt")).ToNot(BeAnExistingFile())
	})

	Describe("Progress", func() {
		It("Should notify after every group", func() {
			var notices []Progress

			_, err := RunWith(NewMaterializerFS(memfs.New()), []Artifact{
				{Group: "security", Path: "config/Security.java", Content: "s"},
				{Group: "dto", Path: "dto/A.java", Content: "a"},
				{Group: "dto", Path: "dto/B.java", Content: "b"},
				{Path: "README", Content: "r"},
			}, WithProgress(func(p Progress) { notices = append(notices, p) }))
			Expect(err).ToNot(HaveOccurred())

			Expect(notices).To(Equal([]Progress{
				{Group: "security", Count: 1, Written: 1},
				{Group: "dto", Count: 2, Written: 3},
			}))
		})

		It("Should not notify for groups that did not complete", func() {
			var notices []Progress

			_, err := RunWith(NewMaterializerFS(memfs.New()), []Artifact{
				{Group: "one", Path: "a.txt", Content: "a"},
				{Group: "two", Path: "b.txt", Content: "b"},
				{Group: "two", Path: "../c.txt", Content: "c"},
			}, WithProgress(func(p Progress) { notices = append(notices, p) }))
			Expect(err).To(HaveOccurred())

			Expect(notices).To(Equal([]Progress{{Group: "one", Count: 1, Written: 1}}))
		})

		It("Should not change the result", func() {
			fs := memfs.New()
			summary, err := RunWith(NewMaterializerFS(fs), []Artifact{
				{Group: "g", Path: "a.txt", Content: "a"},
			}, WithProgress(func(Progress) {}))
			Expect(err).ToNot(HaveOccurred())
			Expect(summary.Count()).To(Equal(1))

			c, err := util.ReadFile(fs, "a.txt")
			Expect(err).ToNot(HaveOccurred())
			Expect(string(c)).To(Equal("a\n"))
		})
	})

	Describe("Logging", func() {
		It("Should log to the configured logger", func() {
			log := &testLogger{}

			_, err := RunWith(NewMaterializerFS(memfs.New()), []Artifact{
				{Path: "a.txt", Content: "a"},
			}, WithLogger(log))
			Expect(err).ToNot(HaveOccurred())

			Expect(log.info).To(ContainElement("Rendered %s"))
			Expect(log.debug).To(ContainElement("Wrote %s"))
		})
	})

	Describe("State", func() {
		DescribeTable("Transitions",
			func(from State, to State, allowed bool) {
				Expect(isAllowedTransition(from, to)).To(Equal(allowed))
			},
			Entry("start", StateNotStarted, StateInProgress, true),
			Entry("complete", StateInProgress, StateCompleted, true),
			Entry("fail", StateInProgress, StateFailed, true),
			Entry("skip progress", StateNotStarted, StateCompleted, false),
			Entry("restart", StateCompleted, StateInProgress, false),
			Entry("recover", StateFailed, StateCompleted, false),
		)

		It("Should not allow a run to start twice", func() {
			r := &runner{m: NewMaterializerFS(memfs.New()), summary: &RunSummary{State: StateCompleted}}
			Expect(r.run(nil)).To(MatchError("invalid run state transition completed -> in_progress"))
		})

		It("Should report terminal states", func() {
			Expect(StateCompleted.IsTerminal()).To(BeTrue())
			Expect(StateFailed.IsTerminal()).To(BeTrue())
			Expect(StateInProgress.IsTerminal()).To(BeFalse())
			Expect(State(10).String()).To(Equal("unknown(10)"))
		})
	})
})
