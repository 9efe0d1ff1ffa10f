package entity

import (
	"testing"
	"time"
)

// full donor→recipient truth table, all 64 pairs
var compatibilityMatrix = map[string]map[string]bool{
	BloodONeg:  {BloodONeg: true, BloodOPos: true, BloodANeg: true, BloodAPos: true, BloodBNeg: true, BloodBPos: true, BloodABNeg: true, BloodABPos: true},
	BloodOPos:  {BloodONeg: false, BloodOPos: true, BloodANeg: false, BloodAPos: true, BloodBNeg: false, BloodBPos: true, BloodABNeg: false, BloodABPos: true},
	BloodANeg:  {BloodONeg: false, BloodOPos: false, BloodANeg: true, BloodAPos: true, BloodBNeg: false, BloodBPos: false, BloodABNeg: true, BloodABPos: true},
	BloodAPos:  {BloodONeg: false, BloodOPos: false, BloodANeg: false, BloodAPos: true, BloodBNeg: false, BloodBPos: false, BloodABNeg: false, BloodABPos: true},
	BloodBNeg:  {BloodONeg: false, BloodOPos: false, BloodANeg: false, BloodAPos: false, BloodBNeg: true, BloodBPos: true, BloodABNeg: true, BloodABPos: true},
	BloodBPos:  {BloodONeg: false, BloodOPos: false, BloodANeg: false, BloodAPos: false, BloodBNeg: false, BloodBPos: true, BloodABNeg: false, BloodABPos: true},
	BloodABNeg: {BloodONeg: false, BloodOPos: false, BloodANeg: false, BloodAPos: false, BloodBNeg: false, BloodBPos: false, BloodABNeg: true, BloodABPos: true},
	BloodABPos: {BloodONeg: false, BloodOPos: false, BloodANeg: false, BloodAPos: false, BloodBNeg: false, BloodBPos: false, BloodABNeg: false, BloodABPos: true},
}

func TestIsCompatibleExhaustive(t *testing.T) {
	for _, donor := range BloodTypes {
		for _, recipient := range BloodTypes {
			got, err := IsCompatible(donor, recipient)
			if err != nil {
				t.Fatalf("IsCompatible(%s, %s) unexpected error: %v", donor, recipient, err)
			}
			want := compatibilityMatrix[donor][recipient]
			if got != want {
				t.Errorf("IsCompatible(%s, %s) = %v, want %v", donor, recipient, got, want)
			}
		}
	}
}

func TestIsCompatibleAsymmetric(t *testing.T) {
	ok, err := IsCompatible(BloodONeg, BloodABPos)
	if err != nil || !ok {
		t.Errorf("O- should serve AB+, got %v, %v", ok, err)
	}
	ok, err = IsCompatible(BloodABPos, BloodONeg)
	if err != nil || ok {
		t.Errorf("AB+ should not serve O-, got %v, %v", ok, err)
	}
}

func TestIsCompatibleInvalidInput(t *testing.T) {
	cases := [][2]string{
		{"X+", BloodOPos},
		{BloodOPos, "X+"},
		{"", BloodOPos},
		{"o+", BloodOPos}, // case sensitive
	}
	for _, c := range cases {
		if _, err := IsCompatible(c[0], c[1]); err != ErrInvalidBloodType {
			t.Errorf("IsCompatible(%q, %q) error = %v, want ErrInvalidBloodType", c[0], c[1], err)
		}
	}
}

func TestCompatibleDonorTypes(t *testing.T) {
	donors, err := CompatibleDonorTypes(BloodONeg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(donors) != 1 || donors[0] != BloodONeg {
		t.Errorf("only O- can serve O-, got %v", donors)
	}

	donors, err = CompatibleDonorTypes(BloodABPos)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(donors) != 8 {
		t.Errorf("every type can serve AB+, got %v", donors)
	}

	if _, err := CompatibleDonorTypes("AB"); err != ErrInvalidBloodType {
		t.Errorf("expected ErrInvalidBloodType, got %v", err)
	}
}

func TestCanDonateAgain(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	if !CanDonateAgain(nil, now) {
		t.Error("never donated should always be eligible")
	}

	d55 := now.AddDate(0, 0, -55)
	if CanDonateAgain(&d55, now) {
		t.Error("55 days since last donation should not be eligible")
	}

	d56 := now.AddDate(0, 0, -56)
	if !CanDonateAgain(&d56, now) {
		t.Error("56 days since last donation should be eligible (boundary inclusive)")
	}

	d60 := now.AddDate(0, 0, -60)
	if !CanDonateAgain(&d60, now) {
		t.Error("60 days since last donation should be eligible")
	}
}

func TestBadgeForCount(t *testing.T) {
	cases := []struct {
		count int
		want  string
	}{
		{0, BadgeBronze},
		{4, BadgeBronze},
		{5, BadgeSilver},
		{9, BadgeSilver},
		{10, BadgeGold},
		{19, BadgeGold},
		{20, BadgePlatinum},
		{100, BadgePlatinum},
	}
	for _, c := range cases {
		if got := BadgeForCount(c.count); got != c.want {
			t.Errorf("BadgeForCount(%d) = %s, want %s", c.count, got, c.want)
		}
	}
}

func TestUrgencyPriority(t *testing.T) {
	if UrgencyPriority(UrgencyCritical) >= UrgencyPriority(UrgencyUrgent) {
		t.Error("critical should rank before urgent")
	}
	if UrgencyPriority(UrgencyUrgent) >= UrgencyPriority(UrgencyNormal) {
		t.Error("urgent should rank before normal")
	}
	if !IsValidUrgency(UrgencyNormal) || IsValidUrgency("whenever") {
		t.Error("urgency validation mismatch")
	}
}

func TestDeliveryTransitions(t *testing.T) {
	allowed := [][2]string{
		{DeliveryStatusAssigned, DeliveryStatusPickedUp},
		{DeliveryStatusPickedUp, DeliveryStatusInTransit},
		{DeliveryStatusInTransit, DeliveryStatusDelivered},
		{DeliveryStatusAssigned, DeliveryStatusCancelled},
	}
	for _, c := range allowed {
		if !CanTransitionDelivery(c[0], c[1]) {
			t.Errorf("transition %s -> %s should be allowed", c[0], c[1])
		}
	}
	denied := [][2]string{
		{DeliveryStatusAssigned, DeliveryStatusDelivered},
		{DeliveryStatusDelivered, DeliveryStatusInTransit},
		{DeliveryStatusCancelled, DeliveryStatusPickedUp},
		{DeliveryStatusDelivered, DeliveryStatusCancelled},
	}
	for _, c := range denied {
		if CanTransitionDelivery(c[0], c[1]) {
			t.Errorf("transition %s -> %s should be denied", c[0], c[1])
		}
	}
}
