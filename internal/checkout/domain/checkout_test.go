package domain

import "testing"

func TestStatusRankOrdering(t *testing.T) {
	order := []Status{StatusCreated, StatusPaymentCompleted, StatusContactCreated, StatusSalesOrderCreated}
	for i, s := range order {
		if s.Rank() != i {
			t.Errorf("%s.Rank() = %d, want %d", s, s.Rank(), i)
		}
	}
	if Status("bogus").Rank() != -1 {
		t.Error("unknown status should rank -1")
	}
}

func TestStatusAtLeast(t *testing.T) {
	if !StatusContactCreated.AtLeast(StatusPaymentCompleted) {
		t.Error("contact_created should be at least payment_completed")
	}
	if StatusCreated.AtLeast(StatusPaymentCompleted) {
		t.Error("created should not be at least payment_completed")
	}
	if Status("bogus").AtLeast(StatusCreated) {
		t.Error("unknown status should never satisfy AtLeast")
	}
}

func TestAgreementStatusRankOrdering(t *testing.T) {
	progression := []AgreementStatus{AgreementPending, AgreementSent, AgreementPartiallySigned}
	for i, s := range progression {
		if s.Rank() != i {
			t.Errorf("%s.Rank() = %d, want %d", s, s.Rank(), i)
		}
	}
	for _, s := range []AgreementStatus{AgreementCompleted, AgreementDeclined, AgreementVoided} {
		if s.Rank() != 3 {
			t.Errorf("%s.Rank() = %d, want terminal rank 3", s, s.Rank())
		}
	}
	if AgreementStatus("bogus").Rank() != -1 {
		t.Error("unknown agreement status should rank -1")
	}
}

func TestAgreementStatusValid(t *testing.T) {
	valid := []AgreementStatus{
		AgreementPending, AgreementSent, AgreementPartiallySigned,
		AgreementCompleted, AgreementDeclined, AgreementVoided,
	}
	for _, s := range valid {
		if !s.Valid() {
			t.Errorf("%s should be valid", s)
		}
	}
	if AgreementStatus("signed").Valid() {
		t.Error("unknown agreement status accepted")
	}
}
