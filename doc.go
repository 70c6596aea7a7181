// Package handrail reconciles a live stream of agent approval events into a
// single pending set and dispatches operator (or policy) decisions back to the
// backend.
//
// The engine is assembled from four collaborators: a frame queue fed by the
// transport, the envelope parser, the pending approval set (optionally backed
// by a persistence slot) and the decision dispatcher. A minimal session:
//
//	engine, err := handrail.New(
//		handrail.WithConfig(config),
//	)
//	if err != nil { ... }
//	engine.Start(ctx)
//	defer engine.Shutdown()
//
//	// transport feeds frames:
//	_ = engine.FrameQueue().Publish(ctx, &envelope.Frame{Data: payload})
//
//	// operator decides:
//	items := engine.Pending().Snapshot(ctx)
//	_ = engine.Dispatcher().Submit(ctx, items[0], approval.VerbApprove)
package handrail
