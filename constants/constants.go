package constants

import "time"

// shared constants used by multiple packages

const (
	CONSULTATION_STATE_PENDING          = "PENDING"
	CONSULTATION_STATE_ASSIGNED         = "ASSIGNED"
	CONSULTATION_STATE_IN_PROGRESS      = "IN_PROGRESS"
	CONSULTATION_STATE_RESPONDED        = "RESPONDED"
	CONSULTATION_STATE_RESOLVED         = "RESOLVED"
	CONSULTATION_STATE_TIMED_OUT        = "TIMED_OUT"
	CONSULTATION_STATE_REFUND_REQUESTED = "REFUND_REQUESTED"
	CONSULTATION_STATE_REFUNDED         = "REFUNDED"
)

const (
	DECRYPTION_TYPE_SETTLEMENT = "settlement"
	DECRYPTION_TYPE_WITHDRAWAL = "withdrawal"
)

const (
	ROLE_CLIENT      = "client"
	ROLE_LAWYER      = "lawyer"
	ROLE_COORDINATOR = "coordinator"
)

// legal subject areas; encrypted category values must decode into this range
const (
	CATEGORY_CONTRACT = iota
	CATEGORY_FAMILY
	CATEGORY_CRIMINAL
	CATEGORY_PROPERTY
	CATEGORY_EMPLOYMENT
	CATEGORY_IMMIGRATION
	CATEGORY_CORPORATE
	CATEGORY_INTELLECTUAL_PROPERTY

	CATEGORY_COUNT = 8
)

const (
	RATING_MIN = 1
	RATING_MAX = 5
)

// Fees are denominated in cents. The minimum fee doubles as the refund floor:
// once a settlement decryption has failed, the true obfuscated amount cannot be
// recovered without the oracle, so refunds pay out the floor.
const MIN_CONSULTATION_FEE = 5000

// Fee amounts are multiplied by this factor and floor-divided by 100 before
// encryption, and inverted the same way at settlement. Both ends must agree on
// the value; the round trip intentionally loses sub-cent precision.
const OBFUSCATION_FACTOR = 137

const (
	QUESTION_MAX_LENGTH = 4096
	RESPONSE_MAX_LENGTH = 8192
)

// deadline ladder, each anchored to a different timestamp on the consultation
const (
	OVERALL_DEADLINE  = 30 * 24 * time.Hour // from submission
	RESPONSE_DEADLINE = 7 * 24 * time.Hour  // from assignment
	DECRYPT_DEADLINE  = 24 * time.Hour      // from decryption request
)

const (
	RATE_LIMIT_PERIOD          = time.Hour
	MAX_SUBMISSIONS_PER_PERIOD = 5
)

// errors surfaced by the consultations service and the HTTP API
const (
	ERROR_INTERNAL                 = "INTERNAL"
	ERROR_NOT_FOUND                = "NOT_FOUND"
	ERROR_UNAUTHORIZED             = "UNAUTHORIZED"
	ERROR_INVALID_INPUT            = "INVALID_INPUT"
	ERROR_RATE_LIMITED             = "RATE_LIMITED"
	ERROR_INVALID_STATE_TRANSITION = "INVALID_STATE_TRANSITION"
	ERROR_DEADLINE_EXCEEDED        = "DEADLINE_EXCEEDED"
	ERROR_PROOF_INVALID            = "PROOF_INVALID"
	ERROR_TRANSFER_FAILED          = "TRANSFER_FAILED"
)

// internal event names
const (
	EVENT_CONSULTATION_SUBMITTED = "consultation_submitted"
	EVENT_CONSULTATION_ASSIGNED  = "consultation_assigned"
	EVENT_CONSULTATION_RESPONDED = "consultation_responded"
	EVENT_CONSULTATION_RESOLVED  = "consultation_resolved"
	EVENT_CONSULTATION_TIMED_OUT = "consultation_timed_out"
	EVENT_LAWYER_REGISTERED      = "lawyer_registered"
	EVENT_LAWYER_VERIFIED        = "lawyer_verified"
	EVENT_LAWYER_RATED           = "lawyer_rated"
	EVENT_DECRYPTION_REQUESTED   = "decryption_requested"
	EVENT_DECRYPTION_FAILED      = "decryption_failed"
	EVENT_REFUND_REQUESTED       = "refund_requested"
	EVENT_REFUND_PROCESSED       = "refund_processed"
	EVENT_WITHDRAWAL_REQUESTED   = "withdrawal_requested"
	EVENT_WITHDRAWAL_SETTLED     = "withdrawal_settled"
)

const APP_IDENTIFIER = "consulthub"

// refund eligibility reasons, checked in this order
const (
	REFUND_REASON_OVERALL_TIMEOUT   = "overall timeout"
	REFUND_REASON_RESPONSE_TIMEOUT  = "response timeout"
	REFUND_REASON_DECRYPT_TIMEOUT   = "decrypt timeout"
	REFUND_REASON_ALREADY_REQUESTED = "refund requested"
)
