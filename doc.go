// Package failwatch captures diagnostics from a Kubernetes environment when a
// system test fails, and coordinates that capture with the suite lanes used
// to run tests concurrently.
//
// A failure observed at any of the five lifecycle points (test body,
// before-all, before-each, after-each, after-all) is turned into at most one
// capture request, and the original failure is always handed back to the
// caller unchanged:
//
//	h, err := failwatch.New(ctx, restCfg, failwatch.FromEnvironment())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer h.Close()
//
//	exec := failwatch.Execution{TestClass: "KafkaST", TestMethod: "testRollingUpdate"}
//	err = h.Watcher().Run(ctx, failwatch.TestBody, exec, func(ctx context.Context) error {
//	    return rollKafka(ctx)
//	})
//	// err is exactly what rollKafka returned.
//
// # Lanes
//
// Suites run either in the parallel lane, alongside other parallel suites, or
// in the isolated lane, alone. A suite that fails in its after-all hook is
// removed from its lane before capture starts, so a slow or failing capture
// never blocks the next suite.
//
// # Serialization
//
// Captures are serialized by a Gate: at most one capture runs at a time in
// the process, and with a capture lock file at most one runs at a time across
// all test binaries sharing that file.
//
// # Aborted tests
//
// A failure matching ErrAborted (see Abort) means the test skipped itself.
// At the test body, before-all and before-each points it is not captured;
// teardown failures (after-each, after-all) are always captured.
package failwatch
