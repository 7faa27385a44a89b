/*
Package domain contains the core domain models of the Concierge chat assistant.

It defines the fundamental entities of the conversation, such as the Domain being served,
the Flow States of each domain's question sequence, the collected Fields and the Message Log.
This package is kept pure and free of external dependencies like I/O or persistence,
following Hexagonal Architecture principles.

# Key Entities

  - Domain: Which service the conversation runs (Vendor matching or Event advice).
  - FlowState: The position inside the domain's ordered question sequence.
  - Fields: A tagged union of EventFields and VendorFields.
  - Session: The runtime snapshot of one conversation (Domain, FlowState, Fields, guard flags).
  - Log: The append-only, order-preserving sequence of Messages.
*/
package domain
