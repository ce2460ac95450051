package admission

import (
	"github.com/CarrieMorar/FHELegalConsultation/constants"
)

func CategoryInRange(category uint) bool {
	return category < constants.CATEGORY_COUNT
}

func RatingInRange(rating uint) bool {
	return rating >= constants.RATING_MIN && rating <= constants.RATING_MAX
}

func QuestionLengthOK(question string) bool {
	return len(question) > 0 && len(question) <= constants.QUESTION_MAX_LENGTH
}

func ResponseLengthOK(response string) bool {
	return len(response) > 0 && len(response) <= constants.RESPONSE_MAX_LENGTH
}
