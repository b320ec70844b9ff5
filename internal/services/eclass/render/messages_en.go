package render

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func init() {
	lang := language.English

	message.SetString(lang, "eclass.layout.date", "Jan 2 at 15:04")
	message.SetString(lang, "eclass.duration.minutes", "%d min")
	message.SetString(lang, "eclass.duration.hours", "%d h")
	message.SetString(lang, "eclass.duration.hours_minutes", "%d h %02d")

	message.SetString(lang, "eclass.announcement.text", "%s A new e-class has been planned! React with ✅ to be notified when it starts.%s")
	message.SetString(lang, "eclass.announcement.place_alert", "\n:warning: This e-class does not take place on the server: %s.")
	message.SetString(lang, "eclass.embed.author", "New e-class")
	message.SetString(lang, "eclass.embed.title", "%s: %s")
	message.SetString(lang, "eclass.embed.description", "An e-class of %s is planned in %s on %s.")
	message.SetString(lang, "eclass.embed.canceled", "This e-class has been canceled.")
	message.SetString(lang, "eclass.embed.footer", "ID: %s")
	message.SetString(lang, "eclass.embed.date", "Date")
	message.SetString(lang, "eclass.embed.date_value", "%s - %s")
	message.SetString(lang, "eclass.embed.date_in_progress", "In progress (%s - %s)")
	message.SetString(lang, "eclass.embed.date_finished", "Finished (%s - %s)")
	message.SetString(lang, "eclass.embed.duration", "Duration")
	message.SetString(lang, "eclass.embed.professor", "Professor")
	message.SetString(lang, "eclass.embed.recorded", "Recorded")
	message.SetString(lang, "eclass.embed.place", "Place")

	message.SetString(lang, "eclass.recorded.yes", "Yes")
	message.SetString(lang, "eclass.recorded.no", "No")
	message.SetString(lang, "eclass.recorded.link", "<%s>")

	message.SetString(lang, "eclass.place.in_platform", "in %s")
	message.SetString(lang, "eclass.place.in_platform_text", "in %s")
	message.SetString(lang, "eclass.place.external_link", "online at %s")
	message.SetString(lang, "eclass.place.in_person", "in person, %s")

	message.SetString(lang, "eclass.start.notification", "%s the e-class is starting!")
	message.SetString(lang, "eclass.start.title", "The e-class \"%s\" is starting!")
	message.SetString(lang, "eclass.start.description", "%s starts the e-class %s. Follow along in %s. %s")
	message.SetString(lang, "eclass.start.text_channel", "%s")
	message.SetString(lang, "eclass.start.all_channels", "%s and %s")
	message.SetString(lang, "eclass.start.recorded", "This e-class is recorded.")
	message.SetString(lang, "eclass.start.not_recorded", "This e-class is not recorded.")

	message.SetString(lang, "eclass.record.link_announcement", "The recording of the e-class \"%s\" (%s) is available: %s")

	message.SetString(lang, "eclass.reminder.professor", "Your e-class \"%s\" starts at %s %s. %s")
	message.SetString(lang, "eclass.reminder.professor_recorded", "Remember to start the recording, then register the link with the e-class id %s.")
	message.SetString(lang, "eclass.reminder.professor_not_recorded", "This e-class is not recorded.")
	message.SetString(lang, "eclass.reminder.channel", "%s the e-class \"%s\" with %s starts at %s %s!")
	message.SetString(lang, "eclass.reminder.subscriber", "Reminder: the e-class \"%s\" (%s) starts at %s %s.")

	message.SetString(lang, "eclass.subscribed", "You will be reminded of the e-class \"%s\" on %s.")
	message.SetString(lang, "eclass.unsubscribed", "You will no longer be reminded of the e-class \"%s\" on %s.")

	message.SetString(lang, "eclass.upcoming.header", "E-classes of the next 7 days for %s\n\n")
	message.SetString(lang, "eclass.upcoming.none", "No e-class planned!")
	message.SetString(lang, "eclass.upcoming.line", "• %s-%s: %s %s (by %s) [%s]\n")

	message.SetString(lang, "error.UNKNOWN", "Something went wrong. Please try again later.")
	message.SetString(lang, "error.INVALID_INPUT", "Some of the information you gave is invalid.")
	message.SetString(lang, "error.UNAUTHORIZED", "You need to be signed in.")
	message.SetString(lang, "error.FORBIDDEN", "Only the professor or the staff can do that.")
	message.SetString(lang, "error.NOT_FOUND", "No e-class matches this id.")
	message.SetString(lang, "error.INTEGRITY_FAULT", "The e-class announcement could not be found. The staff has been notified.")
	message.SetString(lang, "error.ECLASS_OUT_OF_HORIZON", "The date must be in the future and within the next two months.")
	message.SetString(lang, "error.ECLASS_SCHOOL_YEAR_OVERLAP", "Another e-class is already planned for this school year at that time.")
	message.SetString(lang, "error.ECLASS_PROFESSOR_OVERLAP", "You already have an e-class planned at that time.")
	message.SetString(lang, "error.ECLASS_ALREADY_EXISTS", "An e-class with the same subject, topic and date already exists.")
	message.SetString(lang, "error.ECLASS_UNCONFIGURED_ROLE", "No role is configured for this school year.")
	message.SetString(lang, "error.ECLASS_UNCONFIGURED_CHANNEL", "No announcement channel is configured for this school year.")
	message.SetString(lang, "error.ECLASS_INVALID_STATUS_TRANSITION", "The e-class cannot move to that status.")
	message.SetString(lang, "error.ECLASS_STATUS_DISALLOWS_OPERATION", "The e-class can no longer be changed.")
}
