package recovery

import (
	"github.com/anfrage-dev/anfrage/pkg/api"
)

// PruneRequest returns a copy of req in which every code interpreter tool
// that pins a concrete container is rewritten to auto-provision a fresh
// one. Model, instructions, conversation linkage, and all other tools are
// preserved, and req itself is never modified. Pruning an already-clean
// request yields an equivalent copy, so the operation is idempotent.
func PruneRequest(req *api.Request) *api.Request {
	if req == nil {
		return nil
	}
	out := req.Clone()
	for i := range out.Tools {
		t := &out.Tools[i]
		if t.Type == api.ToolTypeCodeInterpreter && t.Container.Pinned() {
			t.Container = api.AutoContainer()
		}
	}
	return out
}
