// Package mocks provides gomock implementations of the client's collaborator
// interfaces.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	nav := mocks.NewMockNavigator(ctrl)
//	nav.EXPECT().ForceNavigate("/login")
package mocks

// MockNavigator: Location, ForceNavigate
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=navigator_mock.go github.com/felixgeelhaar/studyplan/internal/session Navigator

// MockStore: Get, Set, Remove
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=store_mock.go github.com/felixgeelhaar/studyplan/internal/storage Store
