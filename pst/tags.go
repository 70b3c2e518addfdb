/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Thu Mar 21 09:05:12 2019 mstenber
 * Last modified: Fri Mar 22 10:40:31 2019 mstenber
 * Edit time:     14 min
 *
 */

package pst

import (
	"github.com/fingon/go-pstndb/ltp"
	"github.com/google/uuid"
)

func tag(id ltp.PropertyID, t ltp.PropertyType) ltp.PropertyTag {
	return ltp.PropertyTag{ID: id, Type: t}
}

var (
	PidTagMessageClass          = tag(0x001A, ltp.PtypString)
	PidTagSubject               = tag(0x0037, ltp.PtypString)
	PidTagClientSubmitTime      = tag(0x0039, ltp.PtypTime)
	PidTagSenderName            = tag(0x0C1A, ltp.PtypString)
	PidTagRecipientType         = tag(0x0C15, ltp.PtypInteger32)
	PidTagSenderEmailAddress    = tag(0x0C1F, ltp.PtypString)
	PidTagMessageDeliveryTime   = tag(0x0E06, ltp.PtypTime)
	PidTagMessageFlags          = tag(0x0E07, ltp.PtypInteger32)
	PidTagMessageSize           = tag(0x0E08, ltp.PtypInteger32)
	PidTagHasAttachments        = tag(0x0E1B, ltp.PtypBoolean)
	PidTagAttachSize            = tag(0x0E20, ltp.PtypInteger32)
	PidTagRecordKey             = tag(0x0FF9, ltp.PtypBinary)
	PidTagBody                  = tag(0x1000, ltp.PtypString)
	PidTagDisplayName           = tag(0x3001, ltp.PtypString)
	PidTagAddressType           = tag(0x3002, ltp.PtypString)
	PidTagEmailAddress          = tag(0x3003, ltp.PtypString)
	PidTagIpmSubTreeEntryId     = tag(0x35E0, ltp.PtypBinary)
	PidTagIpmWastebasketEntryId = tag(0x35E3, ltp.PtypBinary)
	PidTagFinderEntryId         = tag(0x35E7, ltp.PtypBinary)
	PidTagContentCount          = tag(0x3602, ltp.PtypInteger32)
	PidTagContentUnreadCount    = tag(0x3603, ltp.PtypInteger32)
	PidTagSubfolders            = tag(0x360A, ltp.PtypBoolean)
	PidTagContainerClass        = tag(0x3613, ltp.PtypString)
	PidTagAttachDataBinary      = tag(0x3701, ltp.PtypBinary)
	PidTagAttachFilename        = tag(0x3704, ltp.PtypString)
	PidTagAttachMethod          = tag(0x3705, ltp.PtypInteger32)
	PidTagAttachLongFilename    = tag(0x3707, ltp.PtypString)
	PidTagAttachMimeTag         = tag(0x370E, ltp.PtypString)
	PidTagSmtpAddress           = tag(0x39FE, ltp.PtypString)
)

var (
	PSETID_Appointment = uuid.MustParse("00062002-0000-0000-c000-000000000046")
	PSETID_Common      = uuid.MustParse("00062008-0000-0000-c000-000000000046")

	PidLidAppointmentStartWhole = ltp.NumericalPropertyTag{
		Set: PSETID_Appointment, ID: 0x820D, Type: ltp.PtypTime}
	PidLidAppointmentEndWhole = ltp.NumericalPropertyTag{
		Set: PSETID_Appointment, ID: 0x820E, Type: ltp.PtypTime}
	PidLidReminderSet = ltp.NumericalPropertyTag{
		Set: PSETID_Common, ID: 0x8503, Type: ltp.PtypBoolean}
	PidNameKeywords = ltp.StringPropertyTag{
		Set: ltp.PS_PUBLIC_STRINGS, Name: "Keywords", Type: ltp.PtypMultipleString}
)

// Message flags (PidTagMessageFlags)
const (
	MSGFLAG_READ       = 0x01
	MSGFLAG_UNMODIFIED = 0x02
	MSGFLAG_SUBMITTED  = 0x04
	MSGFLAG_UNSENT     = 0x08
	MSGFLAG_HASATTACH  = 0x10
)

// Recipient types (PidTagRecipientType)
const (
	RecipientOriginator = 0
	RecipientTo         = 1
	RecipientCc         = 2
	RecipientBcc        = 3
)
