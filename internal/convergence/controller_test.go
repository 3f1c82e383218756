package convergence_test

import (
	"context"
	"errors"
	"time"

	"github.com/go-logr/logr"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/imamik/rsjoin/internal/convergence"
	"github.com/imamik/rsjoin/internal/executor"
	"github.com/imamik/rsjoin/internal/inspector"
	rstesting "github.com/imamik/rsjoin/internal/testing"
)

const okOutput = `{ "ok" : 1 }`

func statusWith(hosts ...string) string {
	out := `{ "set" : "MongoDB_Test_rsmember", "members" : [`
	for i, h := range hosts {
		if i > 0 {
			out += ","
		}
		out += ` { "name" : "` + h + `:27017" }`
	}
	return out + ` ], "ok" : 1 }`
}

var _ = Describe("Controller.Converge", func() {
	var (
		ctx        context.Context
		dispatcher *rstesting.FakeDispatcher
		registry   *rstesting.MemoryRegistry
		clock      *rstesting.FakeClock
		opts       convergence.Options
	)

	newController := func() *convergence.Controller {
		policy := executor.Policy{Settle: 5 * time.Second, Interval: 5 * time.Second, Clock: clock}
		return convergence.New(executor.New(dispatcher, policy), opts)
	}

	BeforeEach(func() {
		ctx = logr.NewContext(context.Background(), GinkgoLogr)
		dispatcher = rstesting.NewFakeDispatcher().
			Reply("mongod.pid", executor.StatusSuccess, "1234 mongod")
		registry = rstesting.NewMemoryRegistry()
		clock = rstesting.NewFakeClock(rstesting.Epoch)
		opts = convergence.DefaultOptions()
		opts.Clock = clock
	})

	Context("when the replica set was never initialized", func() {
		It("initiates it from the single registered node", func() {
			dispatcher.
				Reply("rs.status()", executor.StatusSuccess, `{ "codeName" : "NotYetInitialized" }`).
				Reply("rs.initiate", executor.StatusSuccess, okOutput)
			in := convergence.RunInput{
				Nodes:   convergence.NodeList{ID: []string{"i-1"}, DNS: []string{"dns1"}},
				Project: "MongoDB", Environment: "Test", Role: "rsmember",
			}

			report := newController().Converge(ctx, in)

			Expect(report.Action).To(Equal(convergence.ActionInit))
			Expect(report.Result).To(Equal(convergence.ResultSuccess))
			Expect(report.State).To(Equal(inspector.StateUninitialized))

			inits := dispatcher.CommandsMatching("rs.initiate")
			Expect(inits).To(HaveLen(1))
			Expect(inits[0]).To(ContainSubstring(`_id: "MongoDB_Test_rsmember"`))
			Expect(inits[0]).To(ContainSubstring(`{ _id : 0, host : "dns1:27017" }`))
			Expect(inits[0]).To(HavePrefix("mongo --eval '"))
		})

		It("fails the run when the shell does not confirm", func() {
			dispatcher.
				Reply("rs.status()", executor.StatusSuccess, `NotYetInitialized`).
				Reply("rs.initiate", executor.StatusSuccess, `{ "ok" : 0, "errmsg" : "already initialized" }`)
			in := convergence.NewRunInput(rstesting.NewClusterBuilder("MongoDB", "Test", "rsmember").WithNodes(3).Membership())

			report := newController().Converge(ctx, in)

			Expect(report.Action).To(Equal(convergence.ActionInit))
			Expect(report.Result).To(Equal(convergence.ResultFailure))
			Expect(report.Err).To(HaveOccurred())
		})

		It("targets the representative node with every member in order", func() {
			dispatcher.
				Reply("rs.status()", executor.StatusSuccess, `NotYetInitialized`).
				Reply("rs.initiate", executor.StatusSuccess, okOutput)
			in := convergence.NewRunInput(rstesting.NewClusterBuilder("MongoDB", "Test", "rsmember").WithNodes(3).Membership())

			newController().Converge(ctx, in)

			subs := dispatcher.Submissions()
			last := subs[len(subs)-1]
			Expect(last.Targets).To(Equal([]string{"i-1"}))
			Expect(last.Command).To(ContainSubstring(
				`[ { _id : 0, host : "dns1:27017" }, { _id : 1, host : "dns2:27017" }, { _id : 2, host : "dns3:27017" } ]`))
		})
	})

	Context("when a fourth node joins a healthy three member set", func() {
		It("issues exactly one add for the new node", func() {
			dispatcher.
				Reply("rs.status()", executor.StatusSuccess, statusWith("dns1", "dns2", "dns3")).
				Reply("rs.add", executor.StatusSuccess, okOutput)
			in := convergence.NewRunInput(rstesting.NewClusterBuilder("MongoDB", "Test", "rsmember").WithNodes(4).Membership())

			report := newController().Converge(ctx, in)

			Expect(report.State).To(Equal(inspector.StateMissingMembers))
			Expect(report.Action).To(Equal(convergence.ActionAdd))
			Expect(report.Result).To(Equal(convergence.ResultSuccess))
			Expect(dispatcher.CommandsMatching("rs.add")).To(Equal([]string{
				`mongo --eval 'rs.add( { host: "dns4:27017", priority: 0, votes: 0 } )'`,
			}))
			Expect(report.Attempts).To(ConsistOf(convergence.MemberAttempt{
				Address: "dns4", Status: executor.StatusSuccess, Succeeded: true,
			}))
		})
	})

	Context("when several members are missing", func() {
		It("adds them serially and keeps going after a failed add", func() {
			dispatcher.
				Reply("rs.status()", executor.StatusSuccess, statusWith("dns1")).
				Reply(`"dns2:27017"`, executor.StatusFailed, "").
				Reply(`"dns3:27017"`, executor.StatusSuccess, okOutput)
			in := convergence.NewRunInput(rstesting.NewClusterBuilder("MongoDB", "Test", "rsmember").WithNodes(3).Membership())

			report := newController().Converge(ctx, in)

			Expect(report.Result).To(Equal(convergence.ResultSuccess))
			Expect(report.Attempts).To(HaveLen(2))
			Expect(report.Attempts[0].Address).To(Equal("dns2"))
			Expect(report.Attempts[0].Succeeded).To(BeFalse())
			Expect(report.Attempts[1].Address).To(Equal("dns3"))
			Expect(report.Attempts[1].Succeeded).To(BeTrue())
		})

		It("uses the configured port and member options", func() {
			opts.MemberPort = 27018
			opts.NewMemberPriority = 1
			opts.NewMemberVotes = 1
			dispatcher.
				Reply("rs.status()", executor.StatusSuccess, `{ "name" : "dns1:27018" }`).
				Reply("rs.add", executor.StatusSuccess, okOutput)
			in := convergence.NewRunInput(rstesting.NewClusterBuilder("p", "e", "r").WithNodes(2).Membership())

			newController().Converge(ctx, in)

			Expect(dispatcher.CommandsMatching("rs.add")).To(Equal([]string{
				`mongo --eval 'rs.add( { host: "dns2:27018", priority: 1, votes: 1 } )'`,
			}))
		})
	})

	Context("when every member is already present", func() {
		It("does nothing and succeeds on back-to-back runs", func() {
			dispatcher.Reply("rs.status()", executor.StatusSuccess, statusWith("dns1", "dns2"))
			in := convergence.NewRunInput(rstesting.NewClusterBuilder("p", "e", "r").WithNodes(2).Membership())
			controller := newController()

			first := controller.Converge(ctx, in)
			second := controller.Converge(ctx, in)

			for _, report := range []convergence.Report{first, second} {
				Expect(report.Action).To(Equal(convergence.ActionNone))
				Expect(report.Result).To(Equal(convergence.ResultSuccess))
			}
			Expect(dispatcher.CommandsMatching("rs.status()")).To(HaveLen(2))
			Expect(dispatcher.CommandsMatching("rs.add")).To(BeEmpty())
			Expect(dispatcher.CommandsMatching("rs.initiate")).To(BeEmpty())
		})
	})

	Context("when every command times out", func() {
		It("fails without mutating the registry", func() {
			dispatcher = rstesting.NewFakeDispatcher().On("", func(string, int) (executor.Invocation, error) {
				return executor.Invocation{Status: executor.StatusTimedOut}, nil
			})
			b := rstesting.NewClusterBuilder("p", "e", "r").WithNodes(3)
			b.Seed(registry)
			before := registry.Snapshot()

			report := newController().Converge(ctx, convergence.NewRunInput(b.Membership()))

			Expect(report.Result).To(Equal(convergence.ResultFailure))
			Expect(report.Action).To(Equal(convergence.ActionNone))
			Expect(registry.Snapshot()).To(Equal(before))
			Expect(registry.Puts()).To(BeEmpty())
		})
	})

	Context("when a member has no running database process", func() {
		It("fails before inspecting", func() {
			dispatcher = rstesting.NewFakeDispatcher().ReplyPer("mongod.pid", map[string]executor.Invocation{
				"i-1": {Status: executor.StatusSuccess, Output: "mongod"},
				"i-2": {Status: executor.StatusSuccess, Output: ""},
			})
			in := convergence.NewRunInput(rstesting.NewClusterBuilder("p", "e", "r").WithNodes(2).Membership())

			report := newController().Converge(ctx, in)

			Expect(report.Result).To(Equal(convergence.ResultFailure))
			Expect(errors.Is(report.Err, inspector.ErrNodesNotReady)).To(BeTrue())
			Expect(dispatcher.CommandsMatching("rs.status()")).To(BeEmpty())
		})

		It("skips the check when disabled", func() {
			opts.VerifyProcesses = false
			dispatcher = rstesting.NewFakeDispatcher().Reply("rs.status()", executor.StatusSuccess, statusWith("dns1"))
			in := convergence.NewRunInput(rstesting.NewClusterBuilder("p", "e", "r").WithNodes(1).Membership())

			report := newController().Converge(ctx, in)

			Expect(report.Result).To(Equal(convergence.ResultSuccess))
			Expect(dispatcher.CommandsMatching("mongod.pid")).To(BeEmpty())
		})
	})

	Context("when the membership is empty", func() {
		It("fails without issuing any command", func() {
			report := newController().Converge(ctx, convergence.RunInput{Project: "p", Environment: "e", Role: "r"})

			Expect(report.Result).To(Equal(convergence.ResultFailure))
			Expect(report.State).To(Equal(inspector.StateUnknown))
			Expect(dispatcher.Submissions()).To(BeEmpty())
		})
	})

	Context("when the status command cannot be submitted", func() {
		It("reports an unknown state as a failure", func() {
			dispatcher.FailSubmit("rs.status()", errors.New("throttled"))
			in := convergence.NewRunInput(rstesting.NewClusterBuilder("p", "e", "r").WithNodes(2).Membership())

			report := newController().Converge(ctx, in)

			Expect(report.State).To(Equal(inspector.StateUnknown))
			Expect(report.Result).To(Equal(convergence.ResultFailure))
			Expect(report.Error).To(ContainSubstring("throttled"))
		})
	})

	It("stamps the run duration from the clock", func() {
		dispatcher.Reply("rs.status()", executor.StatusSuccess, statusWith("dns1"))
		in := convergence.NewRunInput(rstesting.NewClusterBuilder("p", "e", "r").WithNodes(1).Membership())

		report := newController().Converge(ctx, in)

		// two commands, each one settle delay
		Expect(report.Duration()).To(Equal(10 * time.Second))
	})
})
