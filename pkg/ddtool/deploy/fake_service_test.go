// SPDX-License-Identifier: AGPL-3.0-only

package deploy

import (
	"context"
	"fmt"

	"github.com/flexrpl/ddtool/pkg/ddtool/client"
)

type serviceCall struct {
	method string
	id     string
	req    client.DashboardRequest
}

// fakeService is an in-memory DashboardService. Created dashboards are added
// to the inventory, so later listings see them.
type fakeService struct {
	inventory []client.DashboardSummary
	calls     []serviceCall
	nextID    int

	// failOn makes the call with the given method and title fail.
	failOn map[string]error
}

func (f *fakeService) ListDashboards(_ context.Context) ([]client.DashboardSummary, error) {
	f.calls = append(f.calls, serviceCall{method: "list"})
	if err := f.failOn["list"]; err != nil {
		return nil, err
	}
	out := make([]client.DashboardSummary, len(f.inventory))
	copy(out, f.inventory)
	return out, nil
}

func (f *fakeService) CreateDashboard(_ context.Context, req client.DashboardRequest) (*client.Dashboard, error) {
	f.calls = append(f.calls, serviceCall{method: "create", req: req})
	if err := f.failOn["create:"+req.Title]; err != nil {
		return nil, err
	}
	f.nextID++
	id := fmt.Sprintf("created-%d", f.nextID)
	f.inventory = append(f.inventory, client.DashboardSummary{ID: id, Title: req.Title})
	return &client.Dashboard{ID: id, Title: req.Title}, nil
}

func (f *fakeService) UpdateDashboard(_ context.Context, id string, req client.DashboardRequest) (*client.Dashboard, error) {
	f.calls = append(f.calls, serviceCall{method: "update", id: id, req: req})
	if err := f.failOn["update:"+req.Title]; err != nil {
		return nil, err
	}
	return &client.Dashboard{ID: id, Title: req.Title}, nil
}

func (f *fakeService) methods() []string {
	var out []string
	for _, c := range f.calls {
		out = append(out, c.method)
	}
	return out
}
