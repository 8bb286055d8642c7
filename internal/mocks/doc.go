// Package mocks provides testify-based mocks of the store interfaces for
// service tests that need to inject failures the in-memory stores cannot
// produce.
//
//	cards := new(mocks.CardStore)
//	cards.On("GetByID", mock.Anything, id).Return(nil, store.ErrCardNotFound)
package mocks
