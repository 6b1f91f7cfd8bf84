package intake

import "fmt"

// Sentinel the model emits, alone, once all five intake fields are collected.
const allInfoCollectedSentinel = "ALL_INFO_COLLECTED"

// kickoffPrompt is the hidden first user turn that makes the model open the
// conversation. It is never shown to the patient.
const kickoffPrompt = "Start the conversation by greeting me and asking for my name."

const systemPromptEnglish = `You are a friendly and professional AI assistant for a clinic. Your goal is to collect patient information for an appointment.
You must collect the following information:
1. Patient's full name.
2. Patient's age (must be a number between 0 and 120).
3. Patient's gender (male, female, or other).
4. A detailed description of their symptoms. Ask follow-up questions about onset, duration, severity, and associated symptoms if necessary to get a good description.
5. A 10-digit phone number.

Speak in a conversational, empathetic, and clear manner. Ask questions one or two at a time.
Confirm each piece of information after the user provides it if it seems reasonable. For example, if the user says their name is John, you can say "Got it, John." before asking the next question.
If the user provides information that seems incorrect (e.g., age 200), politely ask for clarification.
Once you believe you have collected all five pieces of information, and only then, respond with the exact phrase: "ALL_INFO_COLLECTED". Do not add any other words or punctuation to this specific message.
If the user wants to correct information later, acknowledge their request and ask for the correct details for that specific field.
Start by greeting the user and asking for their name. Once the user provides their name, acknowledge it and then immediately ask for their age.
Speak in English.`

const systemPromptHindi = `आप एक मैत्रीपूर्ण और पेशेवर एआई सहायक हैं जो एक क्लिनिक के लिए काम कर रहे हैं। आपका लक्ष्य अपॉइंटमेंट के लिए रोगी की जानकारी एकत्र करना है।
आपको निम्नलिखित जानकारी एकत्र करनी होगी:
1. रोगी का पूरा नाम।
2. रोगी की आयु (0 से 120 के बीच एक संख्या होनी चाहिए)।
3. रोगी का लिंग (पुरुष, महिला, या अन्य)।
4. उनके लक्षणों का विस्तृत विवरण। यदि आवश्यक हो तो अच्छी जानकारी प्राप्त करने के लिए शुरुआत, अवधि, गंभीरता और संबंधित लक्षणों के बारे में अनुवर्ती प्रश्न पूछें।
5. एक 10 अंकों का फ़ोन नंबर।

बातचीत करने वाले, सहानुभूतिपूर्ण और स्पष्ट तरीके से बोलें। एक या दो प्रश्न एक बार में पूछें।
यदि उपयोगकर्ता द्वारा दी गई जानकारी उचित लगती है तो प्रत्येक जानकारी की पुष्टि करें। उदाहरण के लिए, यदि उपयोगकर्ता कहता है कि उसका नाम जॉन है, तो आप अगला प्रश्न पूछने से पहले "समझ गया, जॉन।" कह सकते हैं।
यदि उपयोगकर्ता ऐसी जानकारी प्रदान करता है जो गलत लगती है (उदाहरण के लिए, आयु 200), तो कृपया स्पष्टीकरण मांगें।
एक बार जब आपको विश्वास हो जाए कि आपने सभी पाँच जानकारी एकत्र कर ली है, और केवल तभी, इस सटीक वाक्यांश के साथ उत्तर दें: "ALL_INFO_COLLECTED"। इस विशिष्ट संदेश में कोई अन्य शब्द या विराम चिह्न न जोड़ें।
यदि उपयोगकर्ता बाद में जानकारी सही करना चाहता है, तो उनके अनुरोध को स्वीकार करें और उस विशिष्ट फ़ील्ड के लिए सही विवरण मांगें।
उपयोगकर्ता का अभिवादन करके और उनका नाम पूछकर शुरुआत करें। जब उपयोगकर्ता अपना नाम बता दे, तो उसे स्वीकार करें और फिर तुरंत उनकी उम्र पूछें।
हिंदी में बोलें।`

// systemPrompt returns the language-specific system instruction.
func systemPrompt(lang Language) string {
	if lang == LanguageHindi {
		return systemPromptHindi
	}
	return systemPromptEnglish
}

func phoneConfirmationPrompt(lang Language, phone string) string {
	if lang == LanguageHindi {
		return fmt.Sprintf("आपका फ़ोन नंबर %s है, क्या यह सही है? कृपया हाँ या नहीं में उत्तर दें।", phone)
	}
	return fmt.Sprintf("Your phone number is %s, is this correct? Please say Yes or No.", phone)
}

func detailsConfirmationPrompt(lang Language, summary string) string {
	if lang == LanguageHindi {
		return fmt.Sprintf("मेरे पास आपके लिए निम्नलिखित जानकारी है:\n%s\nक्या यह जानकारी सही है? कृपया हाँ या नहीं में उत्तर दें।", summary)
	}
	return fmt.Sprintf("I have the following information for you:\n%s\nIs this information correct? Please say Yes or No.", summary)
}

func phoneRetryPrompt(lang Language) string {
	if lang == LanguageHindi {
		return "ठीक है, कृपया अपना 10 अंकों का फ़ोन नंबर फिर से प्रदान करें।"
	}
	return "Okay, please provide your 10-digit phone number again."
}

func correctionPrompt(lang Language) string {
	if lang == LanguageHindi {
		return "ठीक है, कौन सी जानकारी गलत है या बदलने की आवश्यकता है? उदाहरण के लिए, आप कह सकते हैं 'मेरा नाम बदलो' या 'मेरे लक्षण अलग हैं'।"
	}
	return "Okay, what information is incorrect or needs to be changed? For example, you can say 'change my name' or 'my symptoms are different'."
}

func appointmentTimePrompt(lang Language) string {
	if lang == LanguageHindi {
		return "बहुत बढ़िया! कृपया अपने अपॉइंटमेंट के लिए सबसे अच्छा समय बताएं।"
	}
	return "Excellent! Now, please tell me the best time for your appointment."
}

func yesNoRetryPrompt(lang Language) string {
	if lang == LanguageHindi {
		return "कृपया हाँ या नहीं में उत्तर दें।"
	}
	return "Please answer with Yes or No."
}

// extractionRetryPrompt re-asks for all five fields after a failed extraction.
const extractionRetryPrompt = "It seems I'm missing some information or it wasn't clear. Could you please provide your full name, age, gender, symptoms, and 10-digit phone number again?"

func bookedConfirmationMessage(appointmentTime string) string {
	return fmt.Sprintf("Your appointment for %s has been submitted.", appointmentTime)
}

// agentUnavailableMessage is the single generic message shown for any agent
// transport or model failure.
const agentUnavailableMessage = "Sorry, I'm having trouble connecting to the AI. Please try again later."
