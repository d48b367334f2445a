// Copyright 2026 The Oxbow Authors
// SPDX-License-Identifier: Apache-2.0

package room

import (
	"errors"
	"testing"

	"github.com/oxbow-foundation/oxbow/lib/signing"
)

func TestConfigurationVerify(t *testing.T) {
	r := newTestRoom(t)
	if err := r.state.Configuration.Verify(&r.state, &r.params); err != nil {
		t.Errorf("Verify: %v", err)
	}
}

func TestConfigurationVerifyWrongSigner(t *testing.T) {
	r := newTestRoom(t)

	_, impostorKey, err := signing.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	configuration := r.state.Configuration.Configuration
	configuration.Version++
	forged, err := NewAuthorizedConfiguration(configuration, impostorKey)
	if err != nil {
		t.Fatalf("NewAuthorizedConfiguration: %v", err)
	}
	r.state.Configuration = forged

	err = r.state.Configuration.Verify(&r.state, &r.params)
	if !errors.Is(err, ErrAuthorization) {
		t.Errorf("Verify with impostor signature: got %v, want ErrAuthorization", err)
	}
}

func TestConfigurationVerifyVersionZero(t *testing.T) {
	r := newTestRoom(t)

	configuration := r.state.Configuration.Configuration
	configuration.Version = 0
	record, err := NewAuthorizedConfiguration(configuration, r.ownerKey)
	if err != nil {
		t.Fatalf("NewAuthorizedConfiguration: %v", err)
	}
	r.state.Configuration = record

	err = r.state.Configuration.Verify(&r.state, &r.params)
	if !errors.Is(err, ErrIntegrity) {
		t.Errorf("Verify with version 0: got %v, want ErrIntegrity", err)
	}
}

func TestConfigurationSummarizeAndDelta(t *testing.T) {
	r := newTestRoom(t)
	r.reconfigure(t, func(c *Configuration) { c.Name = "harbor" })

	summary := r.state.Configuration.Summarize(&r.state, &r.params)
	if summary != 2 {
		t.Fatalf("summary = %d, want version 2", summary)
	}

	// Peer at version 1 receives the record.
	record, changed := r.state.Configuration.Delta(&r.state, &r.params, 1)
	if !changed || record.Configuration.Version != 2 {
		t.Errorf("delta for stale peer: changed=%v", changed)
	}

	// Peer already current: nothing.
	if _, changed := r.state.Configuration.Delta(&r.state, &r.params, 2); changed {
		t.Error("delta against current version should be absent")
	}
}

func TestConfigurationApplyDelta(t *testing.T) {
	r := newTestRoom(t)

	newer := r.state.Configuration.Configuration
	newer.Version = 2
	newer.Name = "harbor"
	record, err := NewAuthorizedConfiguration(newer, r.ownerKey)
	if err != nil {
		t.Fatalf("NewAuthorizedConfiguration: %v", err)
	}

	if err := r.state.Configuration.ApplyDelta(&r.state, &r.params, &record); err != nil {
		t.Fatalf("ApplyDelta: %v", err)
	}
	if r.state.Configuration.Configuration.Name != "harbor" {
		t.Errorf("Name = %q, want harbor", r.state.Configuration.Configuration.Name)
	}

	// A stale record is rejected.
	stale := record
	stale.Configuration.Version = 1
	err = r.state.Configuration.ApplyDelta(&r.state, &r.params, &stale)
	if !errors.Is(err, ErrIntegrity) {
		t.Errorf("ApplyDelta stale: got %v, want ErrIntegrity", err)
	}
	if r.state.Configuration.Configuration.Version != 2 {
		t.Errorf("version after rejected delta = %d, want 2", r.state.Configuration.Configuration.Version)
	}
}
